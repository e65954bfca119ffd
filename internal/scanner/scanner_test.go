package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/exchange"
	"basis-spread-alerts/internal/market"
	"basis-spread-alerts/internal/sampler"
)

type fakeExchange struct {
	id         string
	catalog    market.Catalog
	catalogErr error
	prices     map[string]decimal.Decimal
	priceErrs  map[string]error
}

func (f *fakeExchange) ID() string { return f.id }

func (f *fakeExchange) LoadInstruments(ctx context.Context) (market.Catalog, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.catalog, nil
}

func (f *fakeExchange) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]exchange.Candle, error) {
	if err, ok := f.priceErrs[symbol]; ok {
		return nil, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return []exchange.Candle{
		{Timestamp: time.Now().UTC().Add(-time.Minute), Close: price},
		{Timestamp: time.Now().UTC(), Close: decimal.NewFromInt(-1)},
	}, nil
}

func deliveryInstrument(base string, daysOut int) market.Instrument {
	expiry := time.Now().UTC().Add(time.Duration(daysOut) * 24 * time.Hour)
	symbol := fmt.Sprintf("%s/USD:%s-%s", base, base, expiry.Format("060102"))
	return market.Instrument{Symbol: symbol, Base: base, Quote: "USD", Settle: base, Expiry: expiry.UnixMilli()}
}

func newTestScanner(client exchange.Client) *ExchangeScanner {
	th := Thresholds{
		LowestProfit:      decimal.NewFromFloat(0.02),
		RequiredProfit:    decimal.NewFromFloat(0.02),
		OnlyCurrentPeriod: true,
		PeriodHorizon:     90 * 24 * time.Hour,
	}
	return NewExchangeScanner(client, sampler.New(sampler.Options{}, zerolog.Nop()), th, 0, zerolog.Nop())
}

func TestScanCollectsEligibleObservations(t *testing.T) {
	btc := deliveryInstrument("BTC", 25)
	eth := deliveryInstrument("ETH", 25)

	client := &fakeExchange{
		id: "binance",
		catalog: market.Catalog{
			btc.Symbol: btc,
			eth.Symbol: eth,
		},
		prices: map[string]decimal.Decimal{
			btc.Symbol: decimal.NewFromInt(31200),
			"BTC/USDT": decimal.NewFromInt(30000),
			eth.Symbol: decimal.NewFromInt(2010),
			"ETH/USDT": decimal.NewFromInt(2000), // 0.005, 低于下限
		},
	}

	observations, err := newTestScanner(client).Scan(context.Background())
	if err != nil {
		t.Fatalf("扫描不应报错: %v", err)
	}
	if len(observations) != 1 {
		t.Fatalf("应只入账 1 条观察, 实际 %d", len(observations))
	}
	obs := observations[0]
	if obs.Exchange != "binance" || obs.Contract != btc.Symbol {
		t.Fatalf("观察归属不正确: %+v", obs)
	}
	if !obs.Profit.Equal(decimal.NewFromFloat(0.04)) {
		t.Fatalf("收益率应为 0.04, 实际 %s", obs.Profit.String())
	}
}

func TestScanSkipsFailingInstrument(t *testing.T) {
	btc := deliveryInstrument("BTC", 25)
	eth := deliveryInstrument("ETH", 25)

	client := &fakeExchange{
		id: "okx",
		catalog: market.Catalog{
			btc.Symbol: btc,
			eth.Symbol: eth,
		},
		prices: map[string]decimal.Decimal{
			btc.Symbol: decimal.NewFromInt(31200),
			"BTC/USDT": decimal.NewFromInt(30000),
		},
		priceErrs: map[string]error{
			eth.Symbol: errors.New("rate limited"),
		},
	}

	observations, err := newTestScanner(client).Scan(context.Background())
	if err != nil {
		t.Fatalf("单个合约失败不应中断扫描: %v", err)
	}
	if len(observations) != 1 {
		t.Fatalf("失败合约应被跳过, 其余照常入账, 实际 %d 条", len(observations))
	}
}

func TestScanCatalogFailure(t *testing.T) {
	client := &fakeExchange{id: "okx", catalogErr: errors.New("connection refused")}
	if _, err := newTestScanner(client).Scan(context.Background()); err == nil {
		t.Fatal("目录加载失败应返回错误")
	}
}
