package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/pkg/id"
	"github.com/rustyeddy/sentinel/store"
)

// Position is an open paper trade.
type Position struct {
	ID         string            `json:"id"`
	Instrument market.Instrument `json:"instrument"`
	Qty        int               `json:"qty"`
	Entry      float64           `json:"entry"`
	EntryTime  time.Time         `json:"entry_time"`
	Stop       float64           `json:"stop"`
	Strategy   string            `json:"strategy"`
}

// PnLPct is the unrealized gain at price, in percent.
func (p Position) PnLPct(price float64) float64 {
	return market.PctChange(p.Entry, price)
}

// Row encodes p as a Portfolio table row.
func (p Position) Row() store.Row {
	at := p.EntryTime.In(market.IST)
	return store.Row{
		"Date":      at.Format(market.DayLayout),
		"EntryTime": at.Format(market.TimeLayout),
		"Symbol":    p.Instrument.Symbol,
		"Ticker":    p.Instrument.Ticker,
		"Qty":       strconv.Itoa(p.Qty),
		"BuyPrice":  strconv.FormatFloat(p.Entry, 'f', 2, 64),
		"StopPrice": strconv.FormatFloat(p.Stop, 'f', 2, 64),
		"Strategy":  p.Strategy,
	}
}

// FromRow decodes a Portfolio row. The table has no id column, so a fresh
// id is minted from the entry time.
func FromRow(r store.Row) (Position, error) {
	var p Position
	var err error

	ticker := r["Ticker"]
	if ticker == "" {
		return p, fmt.Errorf("portfolio row: missing ticker")
	}
	p.Instrument = market.Instrument{Ticker: ticker, Symbol: r["Symbol"]}
	if p.Instrument.Symbol == "" {
		p.Instrument = market.NewInstrument(ticker)
	}
	if p.Qty, err = strconv.Atoi(r["Qty"]); err != nil || p.Qty <= 0 {
		return p, fmt.Errorf("portfolio row %s: bad qty %q", ticker, r["Qty"])
	}
	if p.Entry, err = strconv.ParseFloat(r["BuyPrice"], 64); err != nil {
		return p, fmt.Errorf("portfolio row %s: buy price: %w", ticker, err)
	}
	if p.Stop, err = strconv.ParseFloat(r["StopPrice"], 64); err != nil {
		return p, fmt.Errorf("portfolio row %s: stop price: %w", ticker, err)
	}
	clock := r["EntryTime"]
	if clock == "" {
		clock = "00:00:00"
	}
	p.EntryTime, err = time.ParseInLocation(market.DayLayout+" "+market.TimeLayout, r["Date"]+" "+clock, market.IST)
	if err != nil {
		return p, fmt.Errorf("portfolio row %s: entry time: %w", ticker, err)
	}
	p.Strategy = r["Strategy"]
	p.ID = id.NewAt(p.EntryTime)
	return p, nil
}
