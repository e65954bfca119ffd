package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/exchange"
)

// ErrInsufficientHistory marks a symbol whose candle history is too short to
// contain a fully closed interval, e.g. a freshly listed contract. Callers
// treat it as a recoverable data-quality condition.
var ErrInsufficientHistory = errors.New("sampler: insufficient candle history")

// Options tune candle retrieval.
type Options struct {
	Timeframe   string
	CandleLimit int
}

// Sampler reads the last fully closed candle price for a symbol.
type Sampler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Sampler.
func New(opts Options, logger zerolog.Logger) *Sampler {
	if opts.Timeframe == "" {
		opts.Timeframe = "1m"
	}
	if opts.CandleLimit < 2 {
		opts.CandleLimit = 5
	}
	return &Sampler{opts: opts, logger: logger.With().Str("component", "sampler").Logger()}
}

// Sample 返回最后一根 已闭合 k线的收盘价。最新一根 k线仍在走，必须跳过。
func (s *Sampler) Sample(ctx context.Context, client exchange.Client, symbol string) (decimal.Decimal, time.Time, error) {
	candles, err := client.FetchCandles(ctx, symbol, s.opts.Timeframe, s.opts.CandleLimit)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("fetch candles: %w", err)
	}

	if len(candles) < 2 {
		s.logger.Error().
			Str("exchange", client.ID()).
			Str("symbol", symbol).
			Interface("candles", candles).
			Msg("candle history too short for a closed interval")
		return decimal.Decimal{}, time.Time{}, fmt.Errorf("%w: %s returned %d candles", ErrInsufficientHistory, symbol, len(candles))
	}

	closed := candles[len(candles)-2]
	return closed.Close, closed.Timestamp, nil
}
