package alerting

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/scanner"
)

func testThresholds(lowest, required float64) scanner.Thresholds {
	return scanner.Thresholds{
		LowestProfit:   decimal.NewFromFloat(lowest),
		RequiredProfit: decimal.NewFromFloat(required),
	}
}

func observation(exchange, contract string, profit float64) scanner.Observation {
	return scanner.Observation{
		Exchange:   exchange,
		Contract:   contract,
		Profit:     decimal.NewFromFloat(profit),
		ObservedAt: time.Now().UTC(),
	}
}

func TestComposeActionableTier(t *testing.T) {
	result := scanner.ScanResult{
		ScannedAt: time.Now().UTC(),
		Observations: []scanner.Observation{
			observation("binance", "BTC/USD:BTC-230929", 0.04),
			observation("binance", "LINK/USD:LINK-230929", 0.022),
			observation("okx", "ETH/USD:ETH-230929", 0.025),
		},
	}

	report := Compose(result, testThresholds(0.02, 0.03))
	if !report.ShouldSend() {
		t.Fatal("存在高收益合约时应发送")
	}
	if report.Actionable != 1 {
		t.Fatalf("只有 0.04 超过推送阈值, 实际 %d 条", report.Actionable)
	}
	if !strings.Contains(report.Body, "### 出现 收益率>3.00% 的合约") {
		t.Fatalf("行动档标题不正确:\n%s", report.Body)
	}
	if !strings.Contains(report.Body, "- binance BTC/USD:BTC-230929 4.00%") {
		t.Fatalf("行动档应包含超阈值合约:\n%s", report.Body)
	}
	if !strings.Contains(report.Body, "- LINK/USD:LINK-230929 期末收益率 2.20%") {
		t.Fatalf("信息档应包含全部入账合约:\n%s", report.Body)
	}
}

func TestComposeProfitEqualToThresholdDoesNotTrigger(t *testing.T) {
	result := scanner.ScanResult{
		ScannedAt: time.Now().UTC(),
		Observations: []scanner.Observation{
			observation("binance", "BTC/USD:BTC-230929", 0.03),
		},
	}

	report := Compose(result, testThresholds(0.02, 0.03))
	if report.ShouldSend() {
		t.Fatal("恰好等于推送阈值不应触发通知")
	}
	if !strings.Contains(report.Body, "### 无 高收益 合约") {
		t.Fatalf("无行动档时应使用无高收益标题:\n%s", report.Body)
	}
}

func TestComposeGroupsByExchangeSorted(t *testing.T) {
	result := scanner.ScanResult{
		ScannedAt: time.Now().UTC(),
		Observations: []scanner.Observation{
			observation("okx", "ETH/USD:ETH-230929", 0.025),
			observation("binance", "BTC/USD:BTC-230929", 0.025),
		},
	}

	report := Compose(result, testThresholds(0.02, 0.05))
	binanceIdx := strings.Index(report.Body, "#### binance")
	okxIdx := strings.Index(report.Body, "#### okx")
	if binanceIdx < 0 || okxIdx < 0 {
		t.Fatalf("报告应按交易所分组:\n%s", report.Body)
	}
	if binanceIdx > okxIdx {
		t.Fatal("交易所分组应按名称排序")
	}
}

func TestComposeEmptyResult(t *testing.T) {
	report := Compose(scanner.ScanResult{ScannedAt: time.Now().UTC()}, testThresholds(0.02, 0.03))
	if report.ShouldSend() {
		t.Fatal("空结果不应触发通知")
	}
}
