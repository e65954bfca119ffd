package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/market"
)

const (
	binanceFuturesBase = "https://dapi.binance.com"
	binanceSpotBase    = "https://api.binance.com"
)

// Binance serves the coin-margined delivery catalog (dapi) and spot candles.
type Binance struct {
	futuresBase string
	spotBase    string
	client      *http.Client
	logger      zerolog.Logger
	// native maps unified futures symbol to the dapi symbol, e.g.
	// BTC/USD:BTC-250926 -> BTCUSD_250926. Populated by LoadInstruments.
	native map[string]string
}

// NewBinance constructs a Binance REST client.
func NewBinance(opts Options, logger zerolog.Logger) *Binance {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	futuresBase := strings.TrimRight(opts.BaseURL, "/")
	if futuresBase == "" {
		futuresBase = binanceFuturesBase
	}
	spotBase := strings.TrimRight(opts.SpotBaseURL, "/")
	if spotBase == "" {
		spotBase = binanceSpotBase
	}

	return &Binance{
		futuresBase: futuresBase,
		spotBase:    spotBase,
		client:      &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "binance_client").Logger(),
		native:      make(map[string]string),
	}
}

// ID returns the exchange identifier.
func (b *Binance) ID() string { return "binance" }

type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		ContractType string `json:"contractType"`
		DeliveryDate int64  `json:"deliveryDate"`
		BaseAsset    string `json:"baseAsset"`
		QuoteAsset   string `json:"quoteAsset"`
		MarginAsset  string `json:"marginAsset"`
	} `json:"symbols"`
}

// LoadInstruments retrieves /dapi/v1/exchangeInfo and maps it to unified
// symbols. Perpetuals are included with a zero expiry so the filter can
// reject them on its own terms.
func (b *Binance) LoadInstruments(ctx context.Context) (market.Catalog, error) {
	payload, err := b.get(ctx, b.futuresBase+"/dapi/v1/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}

	var info binanceExchangeInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, fmt.Errorf("decode binance exchange info: %w", err)
	}

	catalog := make(market.Catalog, len(info.Symbols))
	for _, s := range info.Symbols {
		inst := market.Instrument{
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
			Settle: s.MarginAsset,
		}

		unified := s.BaseAsset + "/" + s.QuoteAsset + ":" + s.MarginAsset
		if s.ContractType != "PERPETUAL" && s.DeliveryDate > 0 {
			inst.Expiry = s.DeliveryDate
			unified += "-" + time.UnixMilli(s.DeliveryDate).UTC().Format("060102")
		}
		inst.Symbol = unified

		catalog[unified] = inst
		b.native[unified] = s.Symbol
	}
	return catalog, nil
}

// FetchCandles retrieves recent klines for a unified symbol, oldest first.
// Futures symbols resolve through the catalog mapping, spot symbols such as
// BTC/USDT resolve to the spot endpoint.
func (b *Binance) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	endpoint := b.spotBase + "/api/v3/klines"
	nativeID := strings.ReplaceAll(symbol, "/", "")
	if id, ok := b.native[symbol]; ok {
		endpoint = b.futuresBase + "/dapi/v1/klines"
		nativeID = id
	}

	query := url.Values{}
	query.Set("symbol", nativeID)
	query.Set("interval", timeframe)
	query.Set("limit", strconv.Itoa(limit))

	payload, err := b.get(ctx, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	var rows [][]any
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode binance klines %s: %w", symbol, err)
	}

	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := binanceCandle(row)
		if err != nil {
			return nil, fmt.Errorf("parse binance kline %s: %w", symbol, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// binance klines 每行是混合类型数组：[openTime, "open", "high", "low", "close", "volume", ...]
func binanceCandle(row []any) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return Candle{}, fmt.Errorf("open time is not numeric: %v", row[0])
	}

	fields := make([]decimal.Decimal, 5)
	for i := 0; i < 5; i++ {
		raw, ok := row[i+1].(string)
		if !ok {
			return Candle{}, fmt.Errorf("field %d is not a string: %v", i+1, row[i+1])
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		fields[i] = value
	}

	return Candle{
		Timestamp: time.UnixMilli(int64(openTime)).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

func (b *Binance) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseBinanceError(resp.StatusCode, payload)
	}
	return payload, nil
}

func parseBinanceError(status int, payload []byte) error {
	var apiErr struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Msg != "" {
		return fmt.Errorf("binance api error (%d): %s", status, apiErr.Msg)
	}
	if len(payload) > 0 {
		return fmt.Errorf("binance api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("binance api error (%d)", status)
}

var _ Client = (*Binance)(nil)
