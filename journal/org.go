package journal

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/sentinel/market"
)

var auditOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"ratio": func(r Ratio) string {
		if math.IsInf(float64(r), 1) {
			return "inf"
		}
		return fmt.Sprintf("%.2f", float64(r))
	},
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "(none)"
		}
		return t.In(market.IST).Format(market.DayLayout)
	},
}

var auditOrg = template.Must(template.New("audit").Funcs(auditOrgFuncs).Parse(AuditOrgTemplate))

// WriteAuditOrg renders a as an org-mode report.
func WriteAuditOrg(w io.Writer, a Audit) error {
	return auditOrg.Execute(w, a)
}

const AuditOrgTemplate = `* PERFORMANCE AUDIT
:PROPERTIES:
:CREATED:     [{{.Created.Format "2006-01-02 Mon 15:04"}}]
:FIRST_EXIT:  {{day .Start}}
:LAST_EXIT:   {{day .End}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .WinRate)}}
:NET_PNL:     {{printf "%.2f" .NetPnL}}
:END:
{{if eq .Trades 0}}
Not enough closed trades to run the audit.
{{- else}}
** Risk vs. Reward
- Average Winner:   *{{printf "%.2f" .AvgWin}}*
- Average Loser:    *{{printf "%.2f" .AvgLoss}}*
- Reward-to-Risk:   *{{ratio .RewardRisk}} : 1*
- Profit Factor:    *{{ratio .ProfitFactor}}*
- Gross Profit:     {{printf "%.2f" .GrossProfit}}
- Gross Loss:       {{printf "%.2f" .GrossLoss}}

** Strategy Showdown
| Strategy | Trades | Wins | Net P&L | Avg P&L |
|----------+--------+------+---------+---------|
{{- range .ByStrategy}}
| {{.Strategy}} | {{.Trades}} | {{.Wins}} | {{printf "%.2f" .NetPnL}} | {{printf "%.2f" .AvgPnL}} |
{{- end}}
{{- end}}
`

// FormatTradeOrg renders one closed trade as an org-mode entry with the
// facts in a PROPERTIES drawer and empty review sections.
func FormatTradeOrg(t ClosedTrade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Instrument.Symbol, t.Result, t.ExitDate())
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TICKER: %s\n", t.Instrument.Ticker)
	fmt.Fprintf(&b, ":STRATEGY: %s\n", t.Strategy)
	fmt.Fprintf(&b, ":QTY: %d\n", t.Qty)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.2f\n", t.Entry)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.2f\n", t.Exit)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.EntryTime.In(market.IST).Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.ExitTime.In(market.IST).Format(time.RFC3339))
	fmt.Fprintf(&b, ":PNL: %.2f\n", t.PnL)
	if t.Reason != "" {
		fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	}
	b.WriteString(":END:\n\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []ClosedTrade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}
