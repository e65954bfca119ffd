package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/exchange"
	"basis-spread-alerts/internal/market"
	"basis-spread-alerts/internal/sampler"
	"basis-spread-alerts/internal/scanner"
	"basis-spread-alerts/internal/service"
)

// SimulateAlert 通过给定的期货/现货价格模拟一次完整的 扫描 → 评估 → 告警 流程，
// 不访问任何交易所，也不写入存储。
func (a *App) SimulateAlert(ctx context.Context, futures, spot decimal.Decimal) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	expiry := time.Now().UTC().Add(30 * 24 * time.Hour)
	inst := market.Instrument{
		Symbol: "BTC/USD:BTC-" + expiry.Format("060102"),
		Base:   "BTC",
		Quote:  "USD",
		Settle: "BTC",
		Expiry: expiry.UnixMilli(),
	}

	client := &staticClient{
		id:      "simulated",
		catalog: market.Catalog{inst.Symbol: inst},
		prices: map[string]decimal.Decimal{
			inst.Symbol:       futures,
			inst.SpotSymbol(): spot,
		},
	}

	thresholds := scanner.ThresholdsFromConfig(a.Config.Thresholds)
	smp := sampler.New(sampler.Options{}, a.Logger)
	sc := scanner.NewExchangeScanner(client, smp, thresholds, 0, a.Logger)

	svc := service.New(service.Options{
		Orchestrator: scanner.NewOrchestrator([]*scanner.ExchangeScanner{sc}, 1, a.Logger),
		Thresholds:   thresholds,
		Notifier:     notifier,
		AlertsOn:     true,
	}, a.Logger)

	return svc.RunCycle(ctx)
}

// staticClient serves a fixed catalog and fixed prices.
type staticClient struct {
	id      string
	catalog market.Catalog
	prices  map[string]decimal.Decimal
}

func (c *staticClient) ID() string { return c.id }

func (c *staticClient) LoadInstruments(ctx context.Context) (market.Catalog, error) {
	return c.catalog, nil
}

// FetchCandles returns a closed candle at the fixed price followed by a
// still-forming one, so the sampler reads the closed close price.
func (c *staticClient) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]exchange.Candle, error) {
	price, ok := c.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no static price for %s", symbol)
	}
	closed := exchange.Candle{Timestamp: time.Now().UTC().Add(-time.Minute), Close: price}
	forming := exchange.Candle{Timestamp: time.Now().UTC(), Close: price}
	return []exchange.Candle{closed, forming}, nil
}

var _ exchange.Client = (*staticClient)(nil)
