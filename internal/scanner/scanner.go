package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"basis-spread-alerts/internal/exchange"
	"basis-spread-alerts/internal/market"
	"basis-spread-alerts/internal/sampler"
)

// ExchangeScanner walks one exchange's delivery futures and collects
// eligible basis observations.
type ExchangeScanner struct {
	client     exchange.Client
	sampler    *sampler.Sampler
	thresholds Thresholds
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewExchangeScanner constructs a scanner for one exchange. pause is the
// deliberate delay between instrument evaluations, a rate-limit courtesy
// local to this exchange.
func NewExchangeScanner(client exchange.Client, smp *sampler.Sampler, th Thresholds, pause time.Duration, logger zerolog.Logger) *ExchangeScanner {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if pause > 0 {
		limiter = rate.NewLimiter(rate.Every(pause), 1)
	}

	return &ExchangeScanner{
		client:     client,
		sampler:    smp,
		thresholds: th,
		limiter:    limiter,
		logger: logger.With().
			Str("component", "scanner").
			Str("exchange", client.ID()).
			Logger(),
	}
}

// Scan loads the catalog, filters it to eligible delivery futures, and
// evaluates each contract against its spot pair. A failing instrument is
// logged and skipped; only a catalog load failure aborts the exchange.
func (s *ExchangeScanner) Scan(ctx context.Context) ([]Observation, error) {
	catalog, err := s.client.LoadInstruments(ctx)
	if err != nil {
		return nil, err
	}

	eligible := market.FilterDeliveryFutures(catalog, time.Now().UTC())
	s.logger.Debug().
		Int("catalog", len(catalog)).
		Int("eligible", len(eligible)).
		Msg("instrument catalog filtered")

	observations := make([]Observation, 0, len(eligible))
	for symbol, inst := range eligible {
		if err := s.limiter.Wait(ctx); err != nil {
			return observations, err
		}

		obs, ok := s.evaluateInstrument(ctx, symbol, inst)
		if !ok {
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func (s *ExchangeScanner) evaluateInstrument(ctx context.Context, symbol string, inst market.Instrument) (Observation, bool) {
	futPrice, _, err := s.sampler.Sample(ctx, s.client, symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("skip instrument: futures price unavailable")
		return Observation{}, false
	}

	spotSymbol := inst.SpotSymbol()
	spotPrice, _, err := s.sampler.Sample(ctx, s.client, spotSymbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", spotSymbol).Msg("skip instrument: spot price unavailable")
		return Observation{}, false
	}

	now := time.Now().UTC()
	obs, ok := Evaluate(inst, futPrice, spotPrice, s.thresholds, now)
	if !ok {
		return Observation{}, false
	}
	obs.Exchange = s.client.ID()

	s.logger.Info().
		Str("contract", symbol).
		Str("profit", obs.Profit.String()).
		Msg("期末无风险利润")
	s.logger.Debug().
		Str("contract", symbol).
		Str("futures_price", futPrice.String()).
		Str("spot_symbol", spotSymbol).
		Str("spot_price", spotPrice.String()).
		Msg("basis pair sampled")

	return obs, true
}
