// market/instruments.go
package market

import "strings"

// Instrument pairs an exchange-qualified ticker (as the data provider knows
// it) with the display symbol shown to the operator.
type Instrument struct {
	Ticker string `json:"ticker"`
	Symbol string `json:"symbol"`
}

// NewInstrument builds an Instrument from an NSE ticker such as
// "RELIANCE.NS". The display symbol is the ticker without the exchange suffix.
func NewInstrument(ticker string) Instrument {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	sym := strings.TrimSuffix(ticker, ".NS")
	sym = strings.TrimPrefix(sym, "^")
	return Instrument{Ticker: ticker, Symbol: sym}
}

// Benchmark is the Nifty 50 index used by the leadership filter and the
// market safety gate.
var Benchmark = Instrument{Ticker: "^NSEI", Symbol: "NIFTY50"}

var nifty50Tickers = []string{
	"ADANIENT.NS", "ADANIPORTS.NS", "APOLLOHOSP.NS", "ASIANPAINT.NS", "AXISBANK.NS",
	"BAJAJ-AUTO.NS", "BAJFINANCE.NS", "BAJAJFINSV.NS", "BEL.NS", "BHARTIARTL.NS",
	"CIPLA.NS", "COALINDIA.NS", "DRREDDY.NS", "EICHERMOT.NS", "ETERNAL.NS",
	"GRASIM.NS", "HCLTECH.NS", "HDFCBANK.NS", "HDFCLIFE.NS", "HEROMOTOCO.NS",
	"HINDALCO.NS", "HINDUNILVR.NS", "ICICIBANK.NS", "INDUSINDBK.NS", "INFY.NS",
	"ITC.NS", "JIOFIN.NS", "JSWSTEEL.NS", "KOTAKBANK.NS", "LT.NS",
	"M&M.NS", "MARUTI.NS", "NESTLEIND.NS", "NTPC.NS", "ONGC.NS",
	"POWERGRID.NS", "RELIANCE.NS", "SBILIFE.NS", "SBIN.NS", "SHRIRAMFIN.NS",
	"SUNPHARMA.NS", "TATACONSUM.NS", "TATAMOTORS.NS", "TATASTEEL.NS", "TCS.NS",
	"TECHM.NS", "TITAN.NS", "TRENT.NS", "ULTRACEMCO.NS", "WIPRO.NS",
}

// Nifty50 returns the static scanning universe.
func Nifty50() []Instrument {
	out := make([]Instrument, len(nifty50Tickers))
	for i, t := range nifty50Tickers {
		out[i] = NewInstrument(t)
	}
	return out
}

// Tickers extracts the provider tickers of a list of instruments.
func Tickers(instruments []Instrument) []string {
	out := make([]string, len(instruments))
	for i, in := range instruments {
		out[i] = in.Ticker
	}
	return out
}

// Lookup finds an instrument by ticker or display symbol.
func Lookup(universe []Instrument, key string) (Instrument, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, in := range universe {
		if in.Ticker == key || in.Symbol == key {
			return in, true
		}
	}
	return Instrument{}, false
}
