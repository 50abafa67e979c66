// Package store is the durable checkpoint for the ledger, the journal and
// the signal log.
//
// The durable store is spreadsheet-like: a handful of named tables, each a
// list of uniform rows of string cells keyed by column header. Callers only
// need read-all, overwrite-all and append.
package store

import (
	"context"
	"errors"
	"fmt"
)

type Table string

const (
	Portfolio Table = "Portfolio"
	Journal   Table = "Journal"
	SignalLog Table = "Signal_Log"
)

// Columns lists the header of every table in storage order.
var Columns = map[Table][]string{
	Portfolio: {"Date", "EntryTime", "Symbol", "Ticker", "Qty", "BuyPrice", "StopPrice", "Strategy"},
	Journal: {"Date", "EntryTime", "Symbol", "Ticker", "Qty", "BuyPrice", "ExitPrice",
		"ExitDate", "ExitTime", "PnL", "Result", "Strategy"},
	SignalLog: {"Date", "Symbol", "Time"},
}

// Tables returns every known table.
func Tables() []Table {
	return []Table{Portfolio, Journal, SignalLog}
}

var (
	// ErrUnavailable is returned while the store is known to be unreachable.
	ErrUnavailable  = errors.New("store unavailable")
	ErrUnknownTable = errors.New("unknown table")
)

// Row is one record; missing cells read as "".
type Row map[string]string

// Values returns the cells of r in the column order of t.
func (r Row) Values(t Table) []string {
	cols := Columns[t]
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r[c]
	}
	return out
}

// RowFrom builds a Row from cells in the column order of t.
func RowFrom(t Table, values []string) Row {
	r := Row{}
	for i, c := range Columns[t] {
		if i < len(values) {
			r[c] = values[i]
		}
	}
	return r
}

type Store interface {
	Read(ctx context.Context, t Table) ([]Row, error)
	Overwrite(ctx context.Context, t Table, rows []Row) error
	Append(ctx context.Context, t Table, rows ...Row) error
	Ping(ctx context.Context) error
	Close() error
}

func checkTable(t Table) error {
	if _, ok := Columns[t]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, t)
	}
	return nil
}

// Options selects and locates a backend.
type Options struct {
	Type string // "csv", "sqlite", "postgres" or "memory"
	Dir  string // csv
	DSN  string // sqlite path or postgres connection string
}

// Open constructs the backend named by opts.Type.
func Open(opts Options) (Store, error) {
	switch opts.Type {
	case "csv":
		return NewCSV(opts.Dir)
	case "sqlite":
		return NewSQL("sqlite3", opts.DSN)
	case "postgres":
		return NewSQL("postgres", opts.DSN)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q (supported: csv, sqlite, postgres, memory)", opts.Type)
	}
}
