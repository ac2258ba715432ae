package config

import "time"

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Coins struct {
		DeckPath string `env:"COIN_DECK_PATH" flag:"coin-deck" desc:"path to the yaml coin deck file" validate:"required"`
	}
	Scheduler struct {
		CycleInterval    time.Duration `env:"CYCLE_INTERVAL" flag:"cycle-interval"`
		HysteresisMargin float64       `env:"HYSTERESIS_MARGIN" flag:"hysteresis-margin"`
		MinDwell         time.Duration `env:"MIN_DWELL" flag:"min-dwell"`
	}
	Miner struct {
		Binary        string        `env:"MINER_BINARY" flag:"miner-binary" desc:"path to the external miner executable" validate:"required"`
		GracePeriod   time.Duration `env:"MINER_GRACE_PERIOD" flag:"miner-grace-period"`
		ConfirmWindow time.Duration `env:"MINER_CONFIRM_WINDOW" flag:"miner-confirm-window"`
	}
	Metrics struct {
		URL          string        `env:"METRICS_URL" flag:"metrics-url" desc:"profitability api base url" validate:"required,url"`
		FetchTimeout time.Duration `env:"METRICS_FETCH_TIMEOUT"`
		MaxRPS       int           `env:"METRICS_MAX_RPS"`
	}
	Dashboard struct {
		URL            string        `env:"DASHBOARD_URL" flag:"dashboard-url" desc:"dashboard push endpoint, reporting disabled if empty" validate:"omitempty,url"`
		ReportInterval time.Duration `env:"DASHBOARD_REPORT_INTERVAL"`
		QueueSize      int           `env:"DASHBOARD_QUEUE_SIZE"`
		MaxAttempts    int           `env:"DASHBOARD_MAX_ATTEMPTS"`
	}
	DB struct {
		Path          string        `env:"DB_PATH" flag:"db-path" desc:"sqlite history path, history disabled if empty"`
		PruneSchedule string        `env:"DB_PRUNE_SCHEDULE"`
		Retention     time.Duration `env:"DB_RETENTION"`
	}
	Log struct {
		Color           bool   `env:"LOG_COLOR" flag:"log-color"`
		IsProd          bool   `env:"LOG_IS_PROD"`
		JSON            bool   `env:"LOG_JSON"`
		LevelApp        string `env:"LOG_LEVEL_APP" flag:"log-level-app" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelScheduler  string `env:"LOG_LEVEL_SCHEDULER" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelSupervisor string `env:"LOG_LEVEL_SUPERVISOR" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		FilePath        string `env:"LOG_FILE_PATH"`
	}
	Web struct {
		Address string `env:"WEB_ADDRESS" flag:"web-address" desc:"http server address host:port" validate:"required,hostname_port"`
	}
}

// SetDefaults fills zero values with defaults safe for a small rig.
func (cfg *Config) SetDefaults() {
	if cfg.Scheduler.CycleInterval == 0 {
		cfg.Scheduler.CycleInterval = 30 * time.Second
	}
	if cfg.Scheduler.MinDwell == 0 {
		cfg.Scheduler.MinDwell = 10 * time.Minute
	}
	if cfg.Miner.GracePeriod == 0 {
		cfg.Miner.GracePeriod = 10 * time.Second
	}
	if cfg.Miner.ConfirmWindow == 0 {
		cfg.Miner.ConfirmWindow = 5 * time.Second
	}
	if cfg.Metrics.FetchTimeout == 0 {
		cfg.Metrics.FetchTimeout = 10 * time.Second
	}
	if cfg.Metrics.MaxRPS == 0 {
		cfg.Metrics.MaxRPS = 2
	}
	if cfg.Dashboard.ReportInterval == 0 {
		cfg.Dashboard.ReportInterval = 30 * time.Second
	}
	if cfg.Dashboard.QueueSize == 0 {
		cfg.Dashboard.QueueSize = 100
	}
	if cfg.Dashboard.MaxAttempts == 0 {
		cfg.Dashboard.MaxAttempts = 5
	}
	if cfg.DB.PruneSchedule == "" {
		cfg.DB.PruneSchedule = "@hourly"
	}
	if cfg.DB.Retention == 0 {
		cfg.DB.Retention = 7 * 24 * time.Hour
	}
	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "info"
	}
	if cfg.Log.LevelScheduler == "" {
		cfg.Log.LevelScheduler = cfg.Log.LevelApp
	}
	if cfg.Log.LevelSupervisor == "" {
		cfg.Log.LevelSupervisor = cfg.Log.LevelApp
	}
	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:8080"
	}
}
