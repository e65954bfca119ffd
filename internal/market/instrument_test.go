package market

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func futureExpiry(days int) int64 {
	return testNow.Add(time.Duration(days) * 24 * time.Hour).UnixMilli()
}

func TestFilterKeepsEligibleDeliveryFuture(t *testing.T) {
	catalog := Catalog{
		"BTC/USD:BTC-250926": {Symbol: "BTC/USD:BTC-250926", Base: "BTC", Quote: "USD", Settle: "BTC", Expiry: futureExpiry(25)},
	}

	eligible := FilterDeliveryFutures(catalog, testNow)
	if len(eligible) != 1 {
		t.Fatalf("合格合约应保留, 实际 %d", len(eligible))
	}
	if _, ok := eligible["BTC/USD:BTC-250926"]; !ok {
		t.Fatal("BTC/USD:BTC-250926 应在结果中")
	}
}

func TestFilterExcludesPerpetual(t *testing.T) {
	catalog := Catalog{
		"BTC/USD:BTC": {Symbol: "BTC/USD:BTC", Base: "BTC", Quote: "USD", Settle: "BTC"},
	}
	if got := FilterDeliveryFutures(catalog, testNow); len(got) != 0 {
		t.Fatalf("永续合约应被排除, 实际 %v", got)
	}
}

func TestFilterExcludesUSDTQuoted(t *testing.T) {
	catalog := Catalog{
		"BTC/USDT:USDT-250926": {Symbol: "BTC/USDT:USDT-250926", Base: "BTC", Quote: "USDT", Settle: "USDT", Expiry: futureExpiry(25)},
	}
	if got := FilterDeliveryFutures(catalog, testNow); len(got) != 0 {
		t.Fatalf("U 本位合约应被排除, 实际 %v", got)
	}
}

func TestFilterExcludesMixedSettlement(t *testing.T) {
	catalog := Catalog{
		"ETH/USD:BTC-250926": {Symbol: "ETH/USD:BTC-250926", Base: "ETH", Quote: "USD", Settle: "BTC", Expiry: futureExpiry(25)},
	}
	if got := FilterDeliveryFutures(catalog, testNow); len(got) != 0 {
		t.Fatalf("基础货币与结算货币不同的合约应被排除, 实际 %v", got)
	}
}

func TestFilterExcludesNonUSDQuote(t *testing.T) {
	catalog := Catalog{
		"ADA/BTC:BTC-250926": {Symbol: "ADA/BTC:BTC-250926", Base: "ADA", Quote: "BTC", Settle: "BTC", Expiry: futureExpiry(25)},
	}
	if got := FilterDeliveryFutures(catalog, testNow); len(got) != 0 {
		t.Fatalf("非 U 计价合约应被排除, 实际 %v", got)
	}
}

func TestFilterExcludesOptionSymbols(t *testing.T) {
	catalog := Catalog{
		"BTC/USD:BTC-250926-28000-C": {Symbol: "BTC/USD:BTC-250926-28000-C", Base: "BTC", Quote: "USD", Settle: "BTC", Expiry: futureExpiry(25)},
	}
	if got := FilterDeliveryFutures(catalog, testNow); len(got) != 0 {
		t.Fatalf("期权 symbol 应被排除, 实际 %v", got)
	}
}

func TestFilterExcludesExpiredAndMissingExpiry(t *testing.T) {
	catalog := Catalog{
		"BTC/USD:BTC-250101": {Symbol: "BTC/USD:BTC-250101", Base: "BTC", Quote: "USD", Settle: "BTC", Expiry: testNow.Add(-24 * time.Hour).UnixMilli()},
		"ETH/USD:ETH-250926": {Symbol: "ETH/USD:ETH-250926", Base: "ETH", Quote: "USD", Settle: "ETH", Expiry: 0},
	}
	if got := FilterDeliveryFutures(catalog, testNow); len(got) != 0 {
		t.Fatalf("已下架或缺少到期时间的合约应被排除, 实际 %v", got)
	}
}

func TestSpotSymbol(t *testing.T) {
	inst := Instrument{Symbol: "BNB/USD:BNB-251226", Base: "BNB", Quote: "USD", Settle: "BNB"}
	if got := inst.SpotSymbol(); got != "BNB/USDT" {
		t.Fatalf("现货 symbol 应为 BNB/USDT, 实际 %s", got)
	}
}
