package signal

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/sentinel/indicators"
	"github.com/rustyeddy/sentinel/market"
)

// Inputs is everything a policy may look at for one instrument.
type Inputs struct {
	Instrument market.Instrument

	// Price is the latest tradable price.
	Price float64
	// History holds completed daily sessions only, oldest first.
	History market.Series
	// Volume is today's cumulative volume, NaN when unknown.
	Volume float64

	Benchmark      market.Series
	BenchmarkPrice float64
}

// Closes returns the completed daily closes with the live price appended,
// the way a daily chart shows today's still-forming bar.
func (in Inputs) Closes() []float64 {
	return withLast(in.History.Closes(), in.Price)
}

// Volumes is Closes for volume. It is nil when today's volume is unknown.
func (in Inputs) Volumes() []float64 {
	if math.IsNaN(in.Volume) {
		return nil
	}
	return withLast(in.History.Volumes(), in.Volume)
}

func (in Inputs) BenchmarkCloses() []float64 {
	if len(in.Benchmark) == 0 || in.BenchmarkPrice <= 0 {
		return nil
	}
	return withLast(in.Benchmark.Closes(), in.BenchmarkPrice)
}

func withLast(values []float64, last float64) []float64 {
	return append(values, last)
}

// Evaluation is a policy's verdict for one instrument on one cycle.
type Evaluation struct {
	// Ready is false when history is too short to compute the indicators.
	Ready bool
	// Entry reports whether the entry condition holds.
	Entry bool
	// Trigger is the strategy's entry price.
	Trigger float64
	// Aux refines the status. BREAKOUT skips the confirmation delay;
	// WATCHING without Entry marks a squeeze that never confirms on its own.
	Aux  Status
	Note string
}

// Policy computes the entry condition for one strategy.
type Policy interface {
	Name() string
	Evaluate(in Inputs) Evaluation
}

// Params holds the tunables shared by the policies, the debounce and the
// safety gate.
type Params struct {
	ConfirmWindow  time.Duration `json:"confirm-window"`
	VolumeCutoff   time.Duration `json:"volume-cutoff"` // since IST midnight
	BreakoutBuffer float64       `json:"breakout-buffer"`
	HighLookback   int           `json:"high-lookback"`
	TrendWindow    int           `json:"trend-window"`
	LeaderWindow   int           `json:"leader-window"`

	RSIPeriod        int     `json:"rsi-period"`
	RSIMin           float64 `json:"rsi-min"`
	BandWindow       int     `json:"band-window"`
	BandK            float64 `json:"band-k"`
	SqueezeThreshold float64 `json:"squeeze-threshold"`
	VolumeWindow     int     `json:"volume-window"`
	SpikeRatio       float64 `json:"spike-ratio"`

	GateTrendWindow int     `json:"gate-trend-window"`
	BleedFloorPct   float64 `json:"bleed-floor-pct"`
}

func DefaultParams() Params {
	return Params{
		ConfirmWindow:    15 * time.Minute,
		VolumeCutoff:     15 * time.Hour,
		BreakoutBuffer:   0.002,
		HighLookback:     5,
		TrendWindow:      200,
		LeaderWindow:     60,
		RSIPeriod:        14,
		RSIMin:           55,
		BandWindow:       20,
		BandK:            2,
		SqueezeThreshold: indicators.SqueezeThreshold,
		VolumeWindow:     20,
		SpikeRatio:       indicators.SpikeRatio,
		GateTrendWindow:  20,
		BleedFloorPct:    -0.3,
	}
}

// PolicyByName returns the policy for a strategy mode.
func PolicyByName(name string, p Params) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sentinel", "trend", "breakout":
		return Sentinel{Params: p}, nil
	case "sniper", "squeeze":
		return Sniper{Params: p}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: sentinel, sniper)", name)
	}
}
