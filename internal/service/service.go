package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"basis-spread-alerts/internal/alerting"
	"basis-spread-alerts/internal/recorder"
	"basis-spread-alerts/internal/scanner"
	"basis-spread-alerts/internal/scheduler"
	"basis-spread-alerts/internal/storage"
)

// Service orchestrates scanning, persistence, and alerting.
type Service struct {
	orchestrator *scanner.Orchestrator
	scheduler    *scheduler.Scheduler
	thresholds   scanner.Thresholds
	recorder     recorder.Recorder
	store        storage.ObservationStore
	alertStore   storage.AlertStore
	notifier     alerting.Notifier
	logger       zerolog.Logger

	alertsOn bool
	locker   storage.AdvisoryLocker
	lockKey  int64
}

// Options wire the service's collaborators. Recorder is required; store,
// alertStore, notifier, scheduler, and locker are optional.
type Options struct {
	Orchestrator *scanner.Orchestrator
	Scheduler    *scheduler.Scheduler
	Thresholds   scanner.Thresholds
	Recorder     recorder.Recorder
	Store        storage.ObservationStore
	AlertStore   storage.AlertStore
	Notifier     alerting.Notifier
	AlertsOn     bool
	Locker       storage.AdvisoryLocker
	LockKey      int64
}

// New constructs the scanning service.
func New(opts Options, logger zerolog.Logger) *Service {
	return &Service{
		orchestrator: opts.Orchestrator,
		scheduler:    opts.Scheduler,
		thresholds:   opts.Thresholds,
		recorder:     opts.Recorder,
		store:        opts.Store,
		alertStore:   opts.AlertStore,
		notifier:     opts.Notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		alertsOn:     opts.AlertsOn,
		locker:       opts.Locker,
		lockKey:      opts.LockKey,
	}
}

// Run begins the scheduled scanning loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.processCycle)
}

func (s *Service) processCycle(ctx context.Context, cycle time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", cycle).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.RunCycle(ctx)
}

// RunCycle 执行一次完整的扫描周期：扫描 → 落盘 → 告警。
// Storage failure is returned as the cycle error, but alert evaluation always
// runs on the in-memory result first-class.
func (s *Service) RunCycle(ctx context.Context) error {
	result := s.orchestrator.Run(ctx)

	recordErr := s.record(ctx, result)

	report := alerting.Compose(result, s.thresholds)
	s.dispatch(ctx, result, report)

	if recordErr != nil {
		return fmt.Errorf("record scan result: %w", recordErr)
	}
	return ctx.Err()
}

func (s *Service) record(ctx context.Context, result scanner.ScanResult) error {
	var recordErr error
	if s.recorder != nil {
		recordErr = s.recorder.Record(ctx, result)
	}

	// the Postgres sink is a secondary copy; its failure never fails the cycle
	if s.store != nil && len(result.Observations) > 0 {
		if err := s.store.InsertObservations(ctx, result); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist observations to database")
		}
	}
	return recordErr
}

func (s *Service) dispatch(ctx context.Context, result scanner.ScanResult, report alerting.Report) {
	if !report.ShouldSend() {
		s.logger.Debug().Msg("没有 高收益合约，不发送，只本地保存")
		s.logger.Debug().Str("report", report.Body).Msg("informational report")
		return
	}

	if s.alertStore != nil {
		record := storage.AlertRecord{
			ScannedAt:    result.ScannedAt,
			Actionable:   report.Actionable,
			ThresholdPct: s.thresholds.RequiredProfit,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist alert record")
		}
	}

	if !s.alertsOn || s.notifier == nil {
		s.logger.Info().Int("actionable", report.Actionable).Msg("alerting disabled; actionable report logged only")
		s.logger.Info().Str("report", report.Body).Msg("actionable report")
		return
	}

	if err := s.notifier.Notify(ctx, report.Body, alerting.RenderPlainPost); err != nil {
		// alerting is best-effort, never fatal to the scan
		s.logger.Error().Err(err).Msg("failed to dispatch alert")
		return
	}
	s.logger.Debug().Msg("出现 高收益合约，发送完成")
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
