// journal/trade.go
package journal

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/store"
)

type Result string

const (
	Win  Result = "WIN"
	Loss Result = "LOSS"
)

// ClosedTrade is an immutable record of a finished position.
type ClosedTrade struct {
	Instrument market.Instrument `json:"instrument"`
	Qty        int               `json:"qty"`
	Entry      float64           `json:"entry"`
	EntryTime  time.Time         `json:"entry_time"`
	Exit       float64           `json:"exit"`
	ExitTime   time.Time         `json:"exit_time"`
	PnL        float64           `json:"pnl"`
	Result     Result            `json:"result"`
	Strategy   string            `json:"strategy"`

	// Reason is kept in memory and in logs only; the Journal table has no
	// column for it.
	Reason string `json:"reason,omitempty"`
}

// NewClosedTrade computes realized P&L and the result tag. A flat trade is a
// loss.
func NewClosedTrade(inst market.Instrument, qty int, entry float64, entryTime time.Time,
	exit float64, exitTime time.Time, strategy, reason string) ClosedTrade {

	pnl := market.RoundPrice((exit - entry) * float64(qty))
	res := Loss
	if pnl > 0 {
		res = Win
	}
	return ClosedTrade{
		Instrument: inst,
		Qty:        qty,
		Entry:      entry,
		EntryTime:  entryTime,
		Exit:       exit,
		ExitTime:   exitTime,
		PnL:        pnl,
		Result:     res,
		Strategy:   strategy,
		Reason:     reason,
	}
}

// ExitDate is the trading day the trade closed on.
func (t ClosedTrade) ExitDate() string {
	return market.TradingDay(t.ExitTime)
}

func f2(x float64) string { return strconv.FormatFloat(x, 'f', 2, 64) }

// Row encodes t as a Journal table row.
func (t ClosedTrade) Row() store.Row {
	entry := t.EntryTime.In(market.IST)
	exit := t.ExitTime.In(market.IST)
	return store.Row{
		"Date":      entry.Format(market.DayLayout),
		"EntryTime": entry.Format(market.TimeLayout),
		"Symbol":    t.Instrument.Symbol,
		"Ticker":    t.Instrument.Ticker,
		"Qty":       strconv.Itoa(t.Qty),
		"BuyPrice":  f2(t.Entry),
		"ExitPrice": f2(t.Exit),
		"ExitDate":  exit.Format(market.DayLayout),
		"ExitTime":  exit.Format(market.TimeLayout),
		"PnL":       f2(t.PnL),
		"Result":    string(t.Result),
		"Strategy":  t.Strategy,
	}
}

func parseStamp(day, clock string) (time.Time, error) {
	if clock == "" {
		clock = "00:00:00"
	}
	return time.ParseInLocation(market.DayLayout+" "+market.TimeLayout, day+" "+clock, market.IST)
}

// FromRow decodes a Journal table row.
func FromRow(r store.Row) (ClosedTrade, error) {
	var t ClosedTrade
	var err error

	ticker := r["Ticker"]
	if ticker == "" {
		return t, fmt.Errorf("journal row: missing ticker")
	}
	t.Instrument = market.Instrument{Ticker: ticker, Symbol: r["Symbol"]}
	if t.Instrument.Symbol == "" {
		t.Instrument = market.NewInstrument(ticker)
	}
	if t.Qty, err = strconv.Atoi(r["Qty"]); err != nil {
		return t, fmt.Errorf("journal row %s: qty: %w", ticker, err)
	}
	if t.Entry, err = strconv.ParseFloat(r["BuyPrice"], 64); err != nil {
		return t, fmt.Errorf("journal row %s: buy price: %w", ticker, err)
	}
	if t.Exit, err = strconv.ParseFloat(r["ExitPrice"], 64); err != nil {
		return t, fmt.Errorf("journal row %s: exit price: %w", ticker, err)
	}
	if t.EntryTime, err = parseStamp(r["Date"], r["EntryTime"]); err != nil {
		return t, fmt.Errorf("journal row %s: entry time: %w", ticker, err)
	}
	if t.ExitTime, err = parseStamp(r["ExitDate"], r["ExitTime"]); err != nil {
		return t, fmt.Errorf("journal row %s: exit time: %w", ticker, err)
	}
	if t.PnL, err = strconv.ParseFloat(r["PnL"], 64); err != nil {
		// Older rows may carry a formatted amount; derive it instead.
		t.PnL = market.RoundPrice((t.Exit - t.Entry) * float64(t.Qty))
	}
	t.Result = Result(r["Result"])
	if t.Result != Win && t.Result != Loss {
		t.Result = Loss
		if t.PnL > 0 {
			t.Result = Win
		}
	}
	t.Strategy = r["Strategy"]
	return t, nil
}
