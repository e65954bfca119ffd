package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"basis-spread-alerts/internal/alerting"
	"basis-spread-alerts/internal/config"
	"basis-spread-alerts/internal/exchange"
	"basis-spread-alerts/internal/recorder"
	"basis-spread-alerts/internal/sampler"
	"basis-spread-alerts/internal/scanner"
	"basis-spread-alerts/internal/scheduler"
	"basis-spread-alerts/internal/service"
	"basis-spread-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newScanners() ([]*scanner.ExchangeScanner, error) {
	smp := sampler.New(sampler.Options{
		Timeframe:   a.Config.Sampling.Timeframe,
		CandleLimit: a.Config.Sampling.CandleLimit,
	}, a.Logger)
	thresholds := scanner.ThresholdsFromConfig(a.Config.Thresholds)

	scanners := make([]*scanner.ExchangeScanner, 0, len(a.Config.Exchanges))
	for _, id := range a.Config.Exchanges {
		client, err := exchange.New(id, exchange.Options{
			Timeout: a.Config.Sampling.RequestTimeout,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("configure exchange %s: %w", id, err)
		}
		scanners = append(scanners, scanner.NewExchangeScanner(client, smp, thresholds, a.Config.Sampling.Pause, a.Logger))
	}
	return scanners, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Mixin.Token == "" {
		return nil
	}
	cfg := a.Config.Alerting.Mixin
	return alerting.NewMixinNotifier(cfg.Token, a.Config.App.RunName, cfg.APIBase, cfg.Timeout, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store, sched *scheduler.Scheduler) (*service.Service, error) {
	scanners, err := a.newScanners()
	if err != nil {
		return nil, err
	}

	opts := service.Options{
		Orchestrator: scanner.NewOrchestrator(scanners, len(scanners), a.Logger),
		Scheduler:    sched,
		Thresholds:   scanner.ThresholdsFromConfig(a.Config.Thresholds),
		Recorder:     recorder.NewCSV(a.Config.Recorder.CSVPath, a.Logger),
		Notifier:     a.newNotifier(),
		AlertsOn:     a.Config.Alerting.Enabled,
		LockKey:      a.Config.Scheduler.AdvisoryLockKey,
	}
	if store != nil {
		opts.Store = store
		opts.AlertStore = store
		opts.Locker = store
	}

	return service.New(opts, a.Logger), nil
}

// Scan runs one full scan cycle to completion. A cycle that records zero
// observations (even because every exchange was unreachable) is still a
// completed cycle.
func (a *App) Scan(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc, err := a.newService(store, nil)
	if err != nil {
		return err
	}

	a.Logger.Info().Strs("exchanges", a.Config.Exchanges).Msg("starting scan cycle")
	return svc.RunCycle(ctx)
}

// Run executes the long-running scheduled scanning loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; database persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc, err := a.newService(store, sched)
	if err != nil {
		return err
	}

	a.Logger.Info().Msg("starting scanning service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("scanning service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical observations.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
