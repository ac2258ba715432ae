package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/lib"
	"go.uber.org/ratelimit"
)

var (
	ErrFetch       = errors.New("profitability fetch failed")
	ErrBadResponse = errors.New("profitability api returned unexpected response")
)

// HTTPSource pulls profitability scores from the metric api over plain http.
// Outbound calls are rate limited so retry storms cannot hammer the api.
type HTTPSource struct {
	baseURL      string
	fetchTimeout time.Duration
	client       *http.Client
	rl           ratelimit.Limiter
	log          interfaces.ILogger
}

type scoresResponse struct {
	Timestamp int64             `json:"timestamp"`
	Coins     map[string]Sample `json:"coins"`
}

func NewHTTPSource(baseURL string, fetchTimeout time.Duration, maxRPS int, log interfaces.ILogger) *HTTPSource {
	return &HTTPSource{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		fetchTimeout: fetchTimeout,
		client:       &http.Client{},
		rl:           ratelimit.New(maxRPS),
		log:          log,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, coinList []*coins.Coin) (*Snapshot, error) {
	s.rl.Take()

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	tickers := make([]string, len(coinList))
	for i, c := range coinList {
		tickers[i] = c.Ticker
	}

	reqURL := fmt.Sprintf("%s/v1/profitability?tickers=%s", s.baseURL, url.QueryEscape(strings.Join(tickers, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, lib.WrapError(ErrFetch, err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, lib.WrapError(ErrFetch, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, lib.WrapError(ErrBadResponse, fmt.Errorf("status %d", res.StatusCode))
	}

	var body scoresResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, lib.WrapError(ErrBadResponse, err)
	}

	snap := &Snapshot{
		Time:    time.Now(),
		Samples: make(map[string]Sample, len(body.Coins)),
	}
	if body.Timestamp > 0 {
		snap.Time = time.Unix(body.Timestamp, 0)
	}

	// only keep tickers we asked for; the api may track more
	asked := lib.NewSetFromSlice(tickers)
	for ticker, sample := range body.Coins {
		if asked.Contains(ticker) {
			snap.Samples[ticker] = sample
		}
	}

	s.log.Debugf("fetched %d/%d scores", len(snap.Samples), len(tickers))

	return snap, nil
}
