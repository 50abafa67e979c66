package market

import "time"

// IST is India Standard Time. A fixed zone keeps the binary independent of
// the host tzdata; India has no daylight saving.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const (
	DayLayout  = "2006-01-02"
	TimeLayout = "15:04:05"
)

var (
	sessionOpen  = 9*time.Hour + 15*time.Minute
	sessionClose = 15*time.Hour + 30*time.Minute
)

// TradingDay returns the IST calendar date of t as YYYY-MM-DD. It is the key
// for per-day state: confirmation anchors, the re-entry blacklist and the
// duplicate-closure guard.
func TradingDay(t time.Time) string {
	return t.In(IST).Format(DayLayout)
}

func sinceMidnight(t time.Time) time.Duration {
	t = t.In(IST)
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

// SessionOpen reports whether the NSE cash session is open at t.
// Exchange holidays are not modelled; the data feed simply returns no
// intraday bars on those days.
func SessionOpen(t time.Time) bool {
	switch t.In(IST).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	d := sinceMidnight(t)
	return d >= sessionOpen && d < sessionClose
}

// AfterCutoff reports whether the IST wall clock at t is at or past cutoff,
// given as an offset from midnight (e.g. 15h for 15:00).
func AfterCutoff(t time.Time, cutoff time.Duration) bool {
	return sinceMidnight(t) >= cutoff
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
