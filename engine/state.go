package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/sentinel/exits"
	"github.com/rustyeddy/sentinel/feed"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/risk"
	"github.com/rustyeddy/sentinel/signal"
)

// Settings are the operator's runtime switches.
type Settings struct {
	Mode     string      `json:"mode"`
	AutoBuy  bool        `json:"auto_buy"`
	AutoSell bool        `json:"auto_sell"`
	Risk     risk.Policy `json:"risk"`
	Exits    exits.Rules `json:"exits"`
}

type Notification struct {
	Time  time.Time `json:"time"`
	Level string    `json:"level"`
	Msg   string    `json:"msg"`
}

const maxNotifications = 50

// State is everything the loop mutates. It is owned by the loop goroutine;
// commands reach it through Engine.Do.
type State struct {
	Settings      Settings
	Day           string
	Ledger        *ledger.Ledger
	Journal       *journal.Journal
	Confirmations *signal.Confirmations

	Notifications []Notification

	// Results of the last cycle.
	Batch     *feed.Batch
	Gate      signal.Gate
	Snapshots []signal.Snapshot
	CycleID   string
	CycleAt   time.Time

	// stopAlerts remembers breached stops already reported while auto-sell
	// is off, so the operator is told once per position.
	stopAlerts map[string]bool
}

func (s *State) notify(now time.Time, level, format string, args ...interface{}) {
	s.Notifications = append(s.Notifications, Notification{Time: now, Level: level, Msg: fmt.Sprintf(format, args...)})
	if n := len(s.Notifications); n > maxNotifications {
		s.Notifications = append([]Notification(nil), s.Notifications[n-maxNotifications:]...)
	}
}
