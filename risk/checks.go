package risk

import "fmt"

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation messages.
func (d Decision) Reason() string {
	s := ""
	for i, v := range d.Violations {
		if i > 0 {
			s += "; "
		}
		s += v.Msg
	}
	return s
}

// Evaluate checks an intent against the policy and the current book.
func Evaluate(p Policy, intent Intent, book Book) Decision {
	d := Decision{Allowed: true}

	if intent.Entry <= 0 || intent.Stop <= 0 {
		d.add("NO_STOP_OR_ENTRY", "entry/stop must be set")
		return d
	}
	if intent.Stop >= intent.Entry {
		d.add("STOP_ABOVE_ENTRY", fmt.Sprintf("stop %.2f not below entry %.2f", intent.Stop, intent.Entry))
		return d
	}
	if intent.Qty <= 0 {
		d.add("NO_QTY", "quantity must be positive")
		return d
	}

	d.PlannedRisk = PlannedRisk(intent.Qty, intent.Entry, intent.Stop)
	d.PlannedRiskPct = RiskPct(d.PlannedRisk, p.Capital)

	if p.MaxOpenPositions > 0 && book.OpenPositions >= p.MaxOpenPositions {
		d.add("TOO_MANY_OPEN_POSITIONS",
			fmt.Sprintf("open positions %d >= max %d", book.OpenPositions, p.MaxOpenPositions))
	}

	if p.MaxDailyLossPct > 0 && p.Capital > 0 {
		limit := -p.MaxDailyLossPct / 100 * p.Capital
		if book.DayRealized <= limit {
			d.add("DAILY_LOSS_LIMIT",
				fmt.Sprintf("day realized %.2f <= limit %.2f", book.DayRealized, limit))
		}
	}
	return d
}
