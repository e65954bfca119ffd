package alerting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/scanner"
)

// Report is the composed alert text for one scan cycle.
type Report struct {
	// Body is the full report: the actionable section (when present)
	// followed by the informational section listing every recorded profit.
	Body string
	// Actionable counts observations strictly above the notify threshold.
	Actionable int
}

// ShouldSend reports whether the actionable tier is non-empty, i.e. whether
// the report warrants a push notification.
func (r Report) ShouldSend() bool {
	return r.Actionable > 0
}

// Compose 将一次扫描的结果按交易所分组，生成两档报告：
// 全部入账合约的信息档，以及 收益率 严格高于推送阈值的行动档。
func Compose(result scanner.ScanResult, th scanner.Thresholds) Report {
	grouped := make(map[string][]scanner.Observation)
	for _, obs := range result.Observations {
		grouped[obs.Exchange] = append(grouped[obs.Exchange], obs)
	}

	exchanges := make([]string, 0, len(grouped))
	for id := range grouped {
		exchanges = append(exchanges, id)
	}
	sort.Strings(exchanges)

	info := strings.Builder{}
	info.WriteString(fmt.Sprintf("### 收益率>%s 的合约\n", formatPercent(th.LowestProfit)))

	actionable := strings.Builder{}
	actionableCount := 0

	for _, id := range exchanges {
		info.WriteString(fmt.Sprintf("#### %s\n", id))
		for _, obs := range grouped[id] {
			info.WriteString(fmt.Sprintf("- %s 期末收益率 %s\n", obs.Contract, formatPercent(obs.Profit)))
			if obs.Profit.GreaterThan(th.RequiredProfit) {
				actionable.WriteString(fmt.Sprintf("- %s %s %s\n", id, obs.Contract, formatPercent(obs.Profit)))
				actionableCount++
			}
		}
	}

	body := strings.Builder{}
	if actionableCount > 0 {
		body.WriteString(fmt.Sprintf("### 出现 收益率>%s 的合约\n", formatPercent(th.RequiredProfit)))
		body.WriteString(actionable.String())
	} else {
		body.WriteString("### 无 高收益 合约\n")
	}
	body.WriteString(info.String())

	return Report{Body: body.String(), Actionable: actionableCount}
}

func formatPercent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
