package httphandlers

import (
	"github.com/gin-gonic/gin"
	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPHandler struct {
	supervisor *supervisor.Supervisor
	deck       *coins.Deck
	version    string
	log        interfaces.ILogger
}

func NewHTTPHandler(sup *supervisor.Supervisor, deck *coins.Deck, version string, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		supervisor: sup,
		deck:       deck,
		version:    version,
		log:        log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/status", handl.GetStatus)
	r.GET("/coins", handl.GetCoins)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": h.version,
	})
}

func (h *HTTPHandler) GetStatus(ctx *gin.Context) {
	statuses := h.supervisor.StatusSnapshot()

	slots := make([]gin.H, 0, len(statuses))
	for _, st := range statuses {
		slots = append(slots, gin.H{
			"slot_id":    st.SlotID,
			"ticker":     st.Ticker,
			"state":      st.State.String(),
			"score":      st.Score,
			"since":      st.Since,
			"started_at": st.StartedAt,
		})
	}

	ctx.JSON(200, gin.H{"slots": slots})
}

func (h *HTTPHandler) GetCoins(ctx *gin.Context) {
	sets := make(gin.H, len(h.deck.Sets))
	for name, tickers := range h.deck.Sets {
		coinList := make([]gin.H, 0, len(tickers))
		for _, c := range h.deck.EligibleCoins(name) {
			coinList = append(coinList, gin.H{
				"ticker":            c.Ticker,
				"algorithm":         c.Algorithm,
				"pool":              c.Pool,
				"min_profitability": c.MinProfitability,
			})
		}
		sets[name] = coinList
	}

	ctx.JSON(200, gin.H{"coin_sets": sets})
}
