// Package feed wraps the external market data provider.
//
// The gateway never fails a cycle: a failed request degrades to cached or
// last-good data, and instruments missing from a response are simply absent
// from the batch.
package feed

import (
	"context"
	"errors"

	"github.com/rustyeddy/sentinel/market"
)

type Interval string

const (
	Daily    Interval = "1d"
	Intraday Interval = "1m"
)

// Range is the lookback requested for each interval. Two years of daily bars
// covers the 200-session trend line and the 252-session history floor.
var Range = map[Interval]string{
	Daily:    "2y",
	Intraday: "1d",
}

var ErrNoData = errors.New("no data")

// Provider fetches OHLCV series for many tickers at once. A ticker that
// fails individually is left out of the result; an error means the whole
// request failed.
type Provider interface {
	Fetch(ctx context.Context, tickers []string, interval Interval, rng string) (map[string]market.Series, error)
}
