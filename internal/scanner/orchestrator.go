package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Orchestrator fans one scan out across all configured exchanges.
type Orchestrator struct {
	scanners []*ExchangeScanner
	workers  int
	logger   zerolog.Logger
}

// NewOrchestrator builds an orchestrator over the given exchange scanners.
// workers bounds the fan-out degree; zero or negative means one worker per
// exchange.
func NewOrchestrator(scanners []*ExchangeScanner, workers int, logger zerolog.Logger) *Orchestrator {
	if workers <= 0 || workers > len(scanners) {
		workers = len(scanners)
	}
	return &Orchestrator{
		scanners: scanners,
		workers:  workers,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes every exchange scanner concurrently and merges the results
// into one ScanResult stamped with the orchestration start time. A failing
// exchange contributes an empty slice; ordering across exchanges is not
// meaningful.
func (o *Orchestrator) Run(ctx context.Context) ScanResult {
	startedAt := time.Now().UTC()

	results := make([][]Observation, len(o.scanners))

	g, gctx := errgroup.WithContext(ctx)
	if o.workers > 0 {
		g.SetLimit(o.workers)
	}

	for i, sc := range o.scanners {
		i, sc := i, sc
		g.Go(func() error {
			observations, err := sc.Scan(gctx)
			if err != nil {
				o.logger.Error().Err(err).
					Str("exchange", sc.client.ID()).
					Msg("exchange scan failed; contributing no observations")
			}
			results[i] = observations
			// scan failures stay isolated to their exchange
			return nil
		})
	}

	// scanners never return group errors, so Wait only joins the workers
	_ = g.Wait()

	merged := make([]Observation, 0)
	for _, observations := range results {
		merged = append(merged, observations...)
	}

	o.logger.Info().
		Int("exchanges", len(o.scanners)).
		Int("observations", len(merged)).
		Dur("elapsed", time.Since(startedAt)).
		Msg("scan cycle merged")

	return ScanResult{ScannedAt: startedAt, Observations: merged}
}
