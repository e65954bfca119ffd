package scanner

import (
	"time"

	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/market"
)

const profitPrecision = 4

var one = decimal.NewFromInt(1)

// Evaluate computes the basis profit for a matched (futures, spot) price pair
// and applies the eligibility policy. The second return value reports whether
// the observation is kept; ineligible pairs are dropped silently, since most
// instruments are expected to fail the policy.
func Evaluate(inst market.Instrument, futures, spot decimal.Decimal, th Thresholds, now time.Time) (Observation, bool) {
	if spot.IsZero() {
		return Observation{}, false
	}

	// 下限按未取整的收益率判断，取整只作用于入账值
	profit := futures.Div(spot).Sub(one)

	if th.OnlyCurrentPeriod {
		remaining := inst.Expiry - now.UnixMilli()
		if remaining >= th.PeriodHorizon.Milliseconds() {
			return Observation{}, false
		}
	}

	if !profit.GreaterThan(th.LowestProfit) {
		return Observation{}, false
	}

	return Observation{
		Contract:     inst.Symbol,
		FuturesPrice: futures,
		SpotPrice:    spot,
		Profit:       profit.Round(profitPrecision),
		ObservedAt:   now,
	}, true
}
