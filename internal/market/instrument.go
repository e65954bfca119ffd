package market

import (
	"strings"
	"time"
)

// Instrument describes one tradable contract from an exchange catalog, with
// unified ccxt-style symbols such as "BTC/USD:BTC-250926".
type Instrument struct {
	Symbol string
	Base   string
	Quote  string
	Settle string
	// Expiry is the delivery timestamp in epoch milliseconds. Zero for
	// perpetuals or catalog entries without a delivery date.
	Expiry int64
}

// Catalog maps unified symbol to instrument metadata, as returned by one
// exchange's instrument listing.
type Catalog map[string]Instrument

// SpotSymbol 返回合约对应的现货 symbol，BTC/USD:BTC-250926 -> BTC/USDT。
func (i Instrument) SpotSymbol() string {
	return i.Base + "/USDT"
}

// IsDelivery reports whether the instrument is a dated delivery future.
func (i Instrument) IsDelivery() bool {
	return i.Expiry > 0
}

// ExpiresAt returns the delivery time in UTC. Zero time for perpetuals.
func (i Instrument) ExpiresAt() time.Time {
	if i.Expiry <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(i.Expiry).UTC()
}

// FilterDeliveryFutures 从目录中筛选 币本位交割合约：
//  1. symbol 含 '-'，是交割合约
//  2. symbol 不含 ':USDT'，是币本位
//  3. symbol 含 '/USD'，排除 ADA/BTC:BTC-250926 这类非 U 计价合约
//  4. 基础货币与结算货币相同，排除 ETH/USD:BTC-250926 这类混合结算
//  5. 到期时间晚于 now，未下架
//  6. 只有 1 个 '-'，排除 BTC/USD:BTC-250926-28000-C 这类期权 symbol
//
// Entries with a missing or malformed expiry fail condition 5 and are
// excluded rather than reported as errors.
func FilterDeliveryFutures(catalog Catalog, now time.Time) Catalog {
	nowMillis := now.UnixMilli()

	eligible := make(Catalog)
	for symbol, inst := range catalog {
		if !strings.Contains(symbol, "-") {
			continue
		}
		if strings.Count(symbol, "-") != 1 {
			continue
		}
		if strings.Contains(symbol, ":USDT") {
			continue
		}
		if !strings.Contains(symbol, "/USD") {
			continue
		}
		if inst.Base == "" || inst.Base != inst.Settle {
			continue
		}
		if inst.Expiry <= nowMillis {
			continue
		}
		eligible[symbol] = inst
	}
	return eligible
}
