package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const okxInstrumentsPayload = `{
  "code": "0",
  "msg": "",
  "data": [
    {"instId": "BTC-USD-250926", "uly": "BTC-USD", "settleCcy": "BTC", "expTime": "1758873600000", "state": "live"},
    {"instId": "ETH-USD-251226", "uly": "ETH-USD", "settleCcy": "ETH", "expTime": "1766736000000", "state": "live"}
  ]
}`

// okx 返回的 k线为倒序（最新在前）
const okxCandlesPayload = `{
  "code": "0",
  "msg": "",
  "data": [
    ["1693526460000", "30050.5", "30200.0", "30000.0", "30150.0", "98.7", "0", "0", "1"],
    ["1693526400000", "30000.1", "30100.0", "29900.0", "30050.5", "123.4", "0", "0", "1"]
  ]
}`

func newOKXTestServer(t *testing.T) (*httptest.Server, *OKX) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v5/public/instruments":
			if r.URL.Query().Get("instType") != "FUTURES" {
				t.Fatalf("instType 应为 FUTURES, 实际 %s", r.URL.Query().Get("instType"))
			}
			_, _ = w.Write([]byte(okxInstrumentsPayload))
		case "/api/v5/market/candles":
			_, _ = w.Write([]byte(okxCandlesPayload))
		default:
			t.Fatalf("未预期的请求路径: %s", r.URL.Path)
		}
	}))
	client := NewOKX(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	return srv, client
}

func TestOKXLoadInstruments(t *testing.T) {
	srv, client := newOKXTestServer(t)
	defer srv.Close()

	catalog, err := client.LoadInstruments(context.Background())
	if err != nil {
		t.Fatalf("加载目录不应报错: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("目录应包含 2 条, 实际 %d", len(catalog))
	}

	btc, ok := catalog["BTC/USD:BTC-250926"]
	if !ok {
		t.Fatalf("instId 应映射为统一 symbol: %v", catalog)
	}
	if btc.Expiry != 1758873600000 {
		t.Fatalf("到期时间不正确: %d", btc.Expiry)
	}
	if btc.Base != "BTC" || btc.Quote != "USD" || btc.Settle != "BTC" {
		t.Fatalf("币种字段不正确: %+v", btc)
	}
}

func TestOKXFetchCandlesReversesToAscending(t *testing.T) {
	srv, client := newOKXTestServer(t)
	defer srv.Close()

	if _, err := client.LoadInstruments(context.Background()); err != nil {
		t.Fatalf("加载目录失败: %v", err)
	}

	candles, err := client.FetchCandles(context.Background(), "BTC/USD:BTC-250926", "1m", 5)
	if err != nil {
		t.Fatalf("获取 k线不应报错: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("应解析出 2 根 k线, 实际 %d", len(candles))
	}
	if !candles[0].Timestamp.Before(candles[1].Timestamp) {
		t.Fatal("k线应被调整为时间升序")
	}
	if !candles[0].Close.Equal(decimal.NewFromFloat(30050.5)) {
		t.Fatalf("最早一根的收盘价应为 30050.5, 实际 %s", candles[0].Close.String())
	}
}

func TestOKXAPICodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": "51001", "msg": "Instrument ID does not exist", "data": []}`))
	}))
	defer srv.Close()

	client := NewOKX(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := client.FetchCandles(context.Background(), "BTC/USDT", "1m", 5); err == nil {
		t.Fatal("code != 0 应报错")
	}
}
