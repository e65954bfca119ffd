package scanner

import (
	"time"

	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/config"
)

// Observation is one eligible basis spread: a delivery future priced against
// its underlying spot pair on the same exchange.
type Observation struct {
	Exchange     string
	Contract     string
	FuturesPrice decimal.Decimal
	SpotPrice    decimal.Decimal
	// Profit is futures/spot - 1, rounded to 4 decimal places.
	Profit     decimal.Decimal
	ObservedAt time.Time
}

// ScanResult collects the observations of one orchestrator run.
type ScanResult struct {
	ScannedAt    time.Time
	Observations []Observation
}

// Thresholds carries the eligibility policy for one run.
type Thresholds struct {
	// LowestProfit gates whether an observation is kept at all.
	LowestProfit decimal.Decimal
	// RequiredProfit gates whether a kept observation triggers a push
	// notification. The two values are independent; no ordering is
	// enforced between them.
	RequiredProfit    decimal.Decimal
	OnlyCurrentPeriod bool
	PeriodHorizon     time.Duration
}

// ThresholdsFromConfig converts the configured float thresholds to decimals.
func ThresholdsFromConfig(cfg config.ThresholdsConfig) Thresholds {
	return Thresholds{
		LowestProfit:      decimal.NewFromFloat(cfg.LowestProfitFraction),
		RequiredProfit:    decimal.NewFromFloat(cfg.RequiredProfitFraction),
		OnlyCurrentPeriod: cfg.OnlyCurrentPeriod,
		PeriodHorizon:     cfg.PeriodHorizon,
	}
}
