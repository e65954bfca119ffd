package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/market"
)

// Candle is one closed or still-forming OHLCV interval. Clients return
// candles ordered oldest to newest; the last entry may still be forming.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Client is the exchange connectivity collaborator: instrument catalog
// retrieval and recent candle history for both futures and spot symbols.
type Client interface {
	// ID returns the exchange identifier, e.g. "binance".
	ID() string
	// LoadInstruments retrieves the live instrument catalog keyed by
	// unified symbol.
	LoadInstruments(ctx context.Context) (market.Catalog, error)
	// FetchCandles retrieves up to limit recent candles for a unified
	// symbol, oldest first. Futures symbols must come from a prior
	// LoadInstruments call on the same client.
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// Options parameterise a REST client.
type Options struct {
	// BaseURL overrides the production endpoint, used in tests.
	BaseURL string
	// SpotBaseURL overrides the spot endpoint for venues that host spot
	// and futures on separate domains.
	SpotBaseURL string
	Timeout     time.Duration
}

// New constructs the client for a configured exchange id.
func New(id string, opts Options, logger zerolog.Logger) (Client, error) {
	switch id {
	case "binance":
		return NewBinance(opts, logger), nil
	case "okx":
		return NewOKX(opts, logger), nil
	default:
		return nil, fmt.Errorf("unsupported exchange id: %s", id)
	}
}
