package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/lib"
	"github.com/minepilot/minepilot/internal/prom"
)

var (
	ErrDeliver = errors.New("cannot deliver report")
)

const (
	backoffBase = time.Second
	backoffMax  = 30 * time.Second
)

// Reporter pushes status reports to the dashboard. Delivery is best effort:
// reports go through a bounded queue with capped exponential backoff and are
// dropped on overflow or retry exhaustion, so a dead dashboard never blocks
// the scheduling cycle.
type Reporter struct {
	url         string
	interval    time.Duration
	queueSize   int
	maxAttempts int
	statusFn    func() *Report

	mu     sync.Mutex
	queue  deque.Deque[*Report]
	signal chan struct{}

	client *http.Client
	log    interfaces.ILogger
}

func NewReporter(url string, interval time.Duration, queueSize, maxAttempts int, statusFn func() *Report, log interfaces.ILogger) *Reporter {
	return &Reporter{
		url:         url,
		interval:    interval,
		queueSize:   queueSize,
		maxAttempts: maxAttempts,
		statusFn:    statusFn,
		signal:      make(chan struct{}, 1),
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

// Enqueue queues a report for delivery, dropping the oldest queued report on
// overflow. Never blocks.
func (r *Reporter) Enqueue(report *Report) {
	r.mu.Lock()
	if r.queue.Len() >= r.queueSize {
		r.queue.PopFront()
		prom.ReportsDroppedTotal.Inc()
	}
	r.queue.PushBack(report)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *Reporter) Run(ctx context.Context) error {
	r.log.Infof("reporter started, pushing to %s every %s", r.url, r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Enqueue(r.statusFn())
		case <-r.signal:
		}

		r.drain(ctx)
	}
}

func (r *Reporter) drain(ctx context.Context) {
	for {
		r.mu.Lock()
		if r.queue.Len() == 0 {
			r.mu.Unlock()
			return
		}
		report := r.queue.PopFront()
		r.mu.Unlock()

		if err := r.deliver(ctx, report); err != nil {
			r.log.Warnf("report from %s dropped: %s", report.Timestamp.Format(time.RFC3339), err)
			prom.ReportsDroppedTotal.Inc()
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (r *Reporter) deliver(ctx context.Context, report *Report) error {
	var lastErr error
	backoff := backoffBase

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
		}

		lastErr = r.push(ctx, report)
		if lastErr == nil {
			prom.ReportsSentTotal.Inc()
			return nil
		}
	}

	return lib.WrapError(ErrDeliver, lastErr)
}

func (r *Reporter) push(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return nil
}
