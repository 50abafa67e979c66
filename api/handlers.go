package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/engine"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/signal"
)

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorResponse{
		Error:     http.StatusText(status),
		Message:   err.Error(),
		RequestID: reqID(r),
	})
}

// statusFor maps command errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownInstrument), errors.Is(err, ledger.ErrNotHeld):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadyHeld), errors.Is(err, ledger.ErrBlacklisted):
		return http.StatusConflict
	case errors.Is(err, engine.ErrTradingDisabled), errors.Is(err, engine.ErrNoPrice),
		errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, journal.ErrDuplicate):
		return http.StatusOK
	default:
		return http.StatusBadRequest
	}
}

func wantsOrg(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "org")
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	st := s.ctl.Status()
	code := http.StatusOK
	if !st.Store.Connected {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"store":         st.Store,
		"feed_degraded": st.FeedDegraded,
		"banners":       st.Banners,
		"cycle_id":      st.CycleID,
		"time":          st.Time,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

// signals lists the last cycle's snapshots; ?actionable=true keeps only
// those the Auto-Bot would act on, ?status= filters by exact status.
func (s *Server) signals(w http.ResponseWriter, r *http.Request) {
	st := s.ctl.Status()
	q := r.URL.Query()
	only := strings.ToUpper(q.Get("status"))
	out := make([]signal.Snapshot, 0, len(st.Signals))
	for _, sn := range st.Signals {
		if q.Get("actionable") == "true" && !sn.Actionable() {
			continue
		}
		if only != "" && string(sn.Status) != only {
			continue
		}
		out = append(out, sn)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) positions(w http.ResponseWriter, r *http.Request) {
	ps := s.ctl.Status().Positions
	if ps == nil {
		ps = []engine.PositionView{}
	}
	writeJSON(w, http.StatusOK, ps)
}

type addRequest struct {
	Ticker string  `json:"ticker"`
	Entry  float64 `json:"entry,omitempty"`
	Stop   float64 `json:"stop,omitempty"`
}

func (s *Server) addPosition(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Ticker == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("ticker required"))
		return
	}
	p, err := s.ctl.AddPosition(r.Context(), req.Ticker, req.Entry, req.Stop)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) closePosition(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	tr, err := s.ctl.ClosePosition(r.Context(), ticker)
	if err != nil && !errors.Is(err, journal.ErrDuplicate) {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) trades(w http.ResponseWriter, r *http.Request) {
	trades := s.ctl.Journal().All()
	if wantsOrg(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(journal.FormatTradesOrg(trades)))
		return
	}
	if trades == nil {
		trades = []journal.ClosedTrade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	a := journal.Summarize(s.ctl.Journal().All(), s.clock.Now())
	if wantsOrg(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := journal.WriteAuditOrg(w, a); err != nil {
			log.Warn().Err(err).Msg("render audit")
		}
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status().Settings)
}

// updateSettings applies a partial update: fields missing from the body
// keep their current value.
func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	next := s.ctl.Status().Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.ctl.ApplySettings(r.Context(), next); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctl.Status().Settings)
}
