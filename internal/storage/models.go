package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObservationRow is one persisted basis observation.
type ObservationRow struct {
	ID           int64
	ScannedAt    time.Time
	Exchange     string
	Contract     string
	FuturesPrice decimal.Decimal
	SpotPrice    decimal.Decimal
	Profit       decimal.Decimal
	ObservedAt   time.Time
	CreatedAt    time.Time
}

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID           int64
	ScannedAt    time.Time
	Actionable   int
	ThresholdPct decimal.Decimal
	CreatedAt    time.Time
}
