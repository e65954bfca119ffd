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

const okxBase = "https://www.okx.com"

// OKX serves the v5 public futures catalog and market candles.
type OKX struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
	// native maps unified futures symbol to instId, e.g.
	// BTC/USD:BTC-250926 -> BTC-USD-250926. Populated by LoadInstruments.
	native map[string]string
}

// NewOKX constructs an OKX REST client.
func NewOKX(opts Options, logger zerolog.Logger) *OKX {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = okxBase
	}

	return &OKX{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "okx_client").Logger(),
		native:  make(map[string]string),
	}
}

// ID returns the exchange identifier.
func (o *OKX) ID() string { return "okx" }

type okxResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type okxInstrument struct {
	InstID    string `json:"instId"`
	Uly       string `json:"uly"`
	SettleCcy string `json:"settleCcy"`
	ExpTime   string `json:"expTime"`
	State     string `json:"state"`
}

// LoadInstruments retrieves /api/v5/public/instruments?instType=FUTURES and
// maps it to unified symbols.
func (o *OKX) LoadInstruments(ctx context.Context) (market.Catalog, error) {
	query := url.Values{}
	query.Set("instType", "FUTURES")

	data, err := o.get(ctx, "/api/v5/public/instruments", query)
	if err != nil {
		return nil, fmt.Errorf("okx instruments: %w", err)
	}

	var instruments []okxInstrument
	if err := json.Unmarshal(data, &instruments); err != nil {
		return nil, fmt.Errorf("decode okx instruments: %w", err)
	}

	catalog := make(market.Catalog, len(instruments))
	for _, raw := range instruments {
		// uly 形如 BTC-USD，instId 末段是交割日 YYMMDD
		parts := strings.Split(raw.Uly, "-")
		if len(parts) != 2 {
			continue
		}
		base, quote := parts[0], parts[1]

		idParts := strings.Split(raw.InstID, "-")
		if len(idParts) < 3 {
			continue
		}
		date := idParts[len(idParts)-1]

		expiry, err := strconv.ParseInt(raw.ExpTime, 10, 64)
		if err != nil {
			// malformed expiry: keep the entry with zero expiry so the
			// filter drops it instead of failing the whole catalog
			expiry = 0
		}

		unified := base + "/" + quote + ":" + raw.SettleCcy + "-" + date
		catalog[unified] = market.Instrument{
			Symbol: unified,
			Base:   base,
			Quote:  quote,
			Settle: raw.SettleCcy,
			Expiry: expiry,
		}
		o.native[unified] = raw.InstID
	}
	return catalog, nil
}

// FetchCandles retrieves recent candles for a unified symbol. OKX returns
// rows newest first; they are reversed to the oldest-first contract order.
func (o *OKX) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error) {
	nativeID, ok := o.native[symbol]
	if !ok {
		// spot symbol: BTC/USDT -> BTC-USDT
		nativeID = strings.ReplaceAll(symbol, "/", "-")
	}

	query := url.Values{}
	query.Set("instId", nativeID)
	query.Set("bar", timeframe)
	query.Set("limit", strconv.Itoa(limit))

	data, err := o.get(ctx, "/api/v5/market/candles", query)
	if err != nil {
		return nil, fmt.Errorf("okx candles %s: %w", symbol, err)
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode okx candles %s: %w", symbol, err)
	}

	candles := make([]Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		candle, err := okxCandle(rows[i])
		if err != nil {
			return nil, fmt.Errorf("parse okx candle %s: %w", symbol, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func okxCandle(row []string) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("candle row has %d fields, want at least 6", len(row))
	}

	millis, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("timestamp: %w", err)
	}

	fields := make([]decimal.Decimal, 5)
	for i := 0; i < 5; i++ {
		value, err := decimal.NewFromString(row[i+1])
		if err != nil {
			return Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		fields[i] = value
	}

	return Candle{
		Timestamp: time.UnixMilli(millis).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

func (o *OKX) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	target := o.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("okx api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var envelope okxResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode okx envelope: %w", err)
	}
	if envelope.Code != "0" {
		return nil, fmt.Errorf("okx api error (code %s): %s", envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

var _ Client = (*OKX)(nil)
