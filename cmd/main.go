package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/config"
	"github.com/minepilot/minepilot/internal/handlers/httphandlers"
	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/lib"
	"github.com/minepilot/minepilot/internal/metrics"
	"github.com/minepilot/minepilot/internal/recorder"
	"github.com/minepilot/minepilot/internal/reporter"
	"github.com/minepilot/minepilot/internal/scheduler"
	"github.com/minepilot/minepilot/internal/supervisor"
	"golang.org/x/sync/errgroup"
)

const Version = "0.3.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %s\n", err)
		os.Exit(1)
	}

	log, err := lib.NewLogger(cfg.Log.LevelApp, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create logger: %s\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	schedulerLog, err := lib.NewLogger(cfg.Log.LevelScheduler, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create logger: %s\n", err)
		os.Exit(1)
	}

	supervisorLog, err := lib.NewLogger(cfg.Log.LevelSupervisor, cfg.Log.Color, cfg.Log.IsProd, cfg.Log.JSON, cfg.Log.FilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create logger: %s\n", err)
		os.Exit(1)
	}

	deck, err := coins.LoadDeck(cfg.Coins.DeckPath)
	if err != nil {
		log.Errorf("configuration error: %s", err)
		os.Exit(1)
	}
	log.Infof("coin deck loaded: %d coins, %d sets, %d slots", len(deck.Coins), len(deck.Sets), len(deck.Slots))

	var rec recorder.Recorder = recorder.Noop{}
	if cfg.DB.Path != "" {
		sqliteRec, err := recorder.NewSQLiteRecorder(cfg.DB.Path, cfg.DB.Retention, log.Named("HISTORY"))
		if err != nil {
			log.Errorf("configuration error: %s", err)
			os.Exit(1)
		}
		if err := sqliteRec.SchedulePrune(cfg.DB.PruneSchedule); err != nil {
			log.Errorf("configuration error: %s", err)
			os.Exit(1)
		}
		defer func() {
			_ = sqliteRec.Close()
		}()
		rec = sqliteRec
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("Received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("Received signal: %s. Forcing exit...", s)
		os.Exit(1)
	}()

	source := metrics.NewHTTPSource(cfg.Metrics.URL, cfg.Metrics.FetchTimeout, cfg.Metrics.MaxRPS, log.Named("METRICS"))
	runner := supervisor.NewExecRunner(cfg.Miner.Binary, supervisorLog.Named("EXEC"))

	// the supervisor's event hook and the reporter's status callback close
	// over services constructed below; none of them fire before Run
	var (
		sup   *supervisor.Supervisor
		sched *scheduler.Scheduler
		rep   *reporter.Reporter
	)

	sup = supervisor.NewSupervisor(
		deck,
		runner,
		cfg.Miner.GracePeriod,
		cfg.Miner.ConfirmWindow,
		func(e supervisor.Event) {
			if err := rec.RecordEvent(e); err != nil {
				log.Warnf("cannot record slot event: %s", err)
			}
			if rep != nil {
				// immediate push on state transitions
				rep.Enqueue(reporter.BuildReport(sup.StatusSnapshot(), sched.SnapshotStale()))
			}
		},
		supervisorLog.Named("SUPERVISOR"),
	)

	if cfg.Dashboard.URL != "" {
		rep = reporter.NewReporter(
			cfg.Dashboard.URL,
			cfg.Dashboard.ReportInterval,
			cfg.Dashboard.QueueSize,
			cfg.Dashboard.MaxAttempts,
			func() *reporter.Report {
				return reporter.BuildReport(sup.StatusSnapshot(), sched.SnapshotStale())
			},
			log.Named("REPORTER"),
		)
	}

	engine := scheduler.NewEngine(deck, cfg.Scheduler.HysteresisMargin, cfg.Scheduler.MinDwell)
	sched = scheduler.NewScheduler(
		deck,
		engine,
		source,
		sup,
		rec,
		cfg.Scheduler.CycleInterval,
		func(d scheduler.Decision, snap *metrics.Snapshot) {
			if rep != nil {
				rep.Enqueue(reporter.BuildReport(sup.StatusSnapshot(), snap.Stale))
			}
		},
		schedulerLog.Named("SCHEDULER"),
	)

	handl := httphandlers.NewHTTPHandler(sup, deck, Version, log.Named("HTTP"))
	server := &http.Server{
		Addr:    cfg.Web.Address,
		Handler: handl,
	}

	g, gCtx := errgroup.WithContext(ctx)

	services := []interfaces.Runnable{sup, sched}
	if rep != nil {
		services = append(services, rep)
	}
	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			return svc.Run(gCtx)
		})
	}
	g.Go(func() error {
		log.Infof("http server is listening: %s", cfg.Web.Address)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		return server.Close()
	})

	err = g.Wait()
	log.Infof("app exited due to %s", err)
}
