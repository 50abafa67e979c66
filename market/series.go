package market

import (
	"sort"
	"time"
)

// Series is an ordered-by-time sequence of candles for one instrument and
// one sampling interval.
type Series []Candle

// Clean returns a copy of s with invalid rows dropped, sorted ascending by
// time, and duplicate timestamps removed (first occurrence wins). Missing
// sessions are left as gaps.
func (s Series) Clean() Series {
	out := make(Series, 0, len(s))
	for _, c := range s {
		if c.Valid() && !c.Time.IsZero() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for i, c := range out {
		if i > 0 && c.Time.Equal(dedup[len(dedup)-1].Time) {
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

func (s Series) Len() int { return len(s) }

// Last returns the newest candle.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Before returns the prefix of s whose candles belong to trading days
// strictly before day (YYYY-MM-DD, IST). For a daily series this is the set
// of completed sessions while day's session is still in progress.
func (s Series) Before(day string) Series {
	i := sort.Search(len(s), func(i int) bool { return TradingDay(s[i].Time) >= day })
	return s[:i]
}

// On returns the candles that belong to the given trading day.
func (s Series) On(day string) Series {
	start := sort.Search(len(s), func(i int) bool { return TradingDay(s[i].Time) >= day })
	end := start
	for end < len(s) && TradingDay(s[end].Time) == day {
		end++
	}
	return s[start:end]
}

func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Span returns the time range covered by s.
func (s Series) Span() (time.Time, time.Time) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}
	}
	return s[0].Time, s[len(s)-1].Time
}
