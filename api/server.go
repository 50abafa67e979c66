// Package api is the dashboard boundary: read-only views of the last
// published engine status plus the operator commands.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/sentinel/engine"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/pkg/clock"
)

// Controller is the part of the engine the API drives.
type Controller interface {
	Status() *engine.Status
	Journal() *journal.Journal
	AddPosition(ctx context.Context, key string, entry, stop float64) (ledger.Position, error)
	ClosePosition(ctx context.Context, key string) (journal.ClosedTrade, error)
	ApplySettings(ctx context.Context, s engine.Settings) error
}

type ctxKey int

const requestIDKey ctxKey = 0

type Server struct {
	ctl      Controller
	gatherer prometheus.Gatherer
	clock    clock.Clock
	router   *mux.Router
}

// NewServer wires the routes. A nil gatherer serves the default registry.
func NewServer(ctl Controller, g prometheus.Gatherer, c clock.Clock) *Server {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if c == nil {
		c = clock.Real{}
	}
	s := &Server{ctl: ctl, gatherer: g, clock: c, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestID, accessLog)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/status", s.status).Methods(http.MethodGet)
	r.HandleFunc("/signals", s.signals).Methods(http.MethodGet)
	r.HandleFunc("/positions", s.positions).Methods(http.MethodGet)
	r.HandleFunc("/positions", s.addPosition).Methods(http.MethodPost)
	r.HandleFunc("/positions/{ticker}/close", s.closePosition).Methods(http.MethodPost)
	r.HandleFunc("/journal", s.trades).Methods(http.MethodGet)
	r.HandleFunc("/audit", s.audit).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", s.updateSettings).Methods(http.MethodPut)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, errors.New("no such endpoint"))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("dashboard api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("request_id", reqID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func reqID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}
