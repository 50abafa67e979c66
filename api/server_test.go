package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rustyeddy/sentinel/engine"
	"github.com/rustyeddy/sentinel/exits"
	"github.com/rustyeddy/sentinel/journal"
	"github.com/rustyeddy/sentinel/ledger"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/pkg/clock"
	"github.com/rustyeddy/sentinel/risk"
	"github.com/rustyeddy/sentinel/signal"
	"github.com/rustyeddy/sentinel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	infy = market.NewInstrument("INFY.NS")
	tcs  = market.NewInstrument("TCS.NS")
	now  = time.Date(2025, 3, 3, 11, 0, 0, 0, market.IST)
)

type stubController struct {
	status  *engine.Status
	journal *journal.Journal
	applied []engine.Settings
}

func (c *stubController) Status() *engine.Status    { return c.status }
func (c *stubController) Journal() *journal.Journal { return c.journal }

func (c *stubController) AddPosition(_ context.Context, key string, entry, stop float64) (ledger.Position, error) {
	switch strings.ToUpper(key) {
	case "INFY":
		return ledger.Position{Instrument: infy, Qty: 1, Entry: entry, Stop: stop, Strategy: engine.ManualStrategy}, nil
	case "TCS":
		return ledger.Position{}, fmt.Errorf("%w: TCS", ledger.ErrBlacklisted)
	default:
		return ledger.Position{}, fmt.Errorf("%w: %s", engine.ErrUnknownInstrument, key)
	}
}

func (c *stubController) ClosePosition(_ context.Context, key string) (journal.ClosedTrade, error) {
	if key != "INFY" {
		return journal.ClosedTrade{}, fmt.Errorf("%w: %s", ledger.ErrNotHeld, key)
	}
	return journal.NewClosedTrade(infy, 1, 100, now.Add(-time.Hour), 104, now, engine.ManualStrategy, engine.ReasonManual), nil
}

func (c *stubController) ApplySettings(_ context.Context, s engine.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.applied = append(c.applied, s)
	c.status.Settings = s
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *stubController) {
	t.Helper()
	j := journal.New(store.NewMemory())
	ctx := context.Background()
	require.NoError(t, j.Append(ctx, journal.NewClosedTrade(infy, 1, 100, now.AddDate(0, 0, -2), 106, now.AddDate(0, 0, -1), "Sentinel", exits.ReasonStopHit)))
	require.NoError(t, j.Append(ctx, journal.NewClosedTrade(tcs, 1, 200, now.AddDate(0, 0, -2), 196, now.AddDate(0, 0, -1), "Sniper", exits.ReasonStopHit)))

	ctl := &stubController{
		journal: j,
		status: &engine.Status{
			CycleID: "c1",
			Time:    now,
			Day:     "2025-03-03",
			Settings: engine.Settings{
				Mode: "Sentinel", AutoSell: true,
				Risk: risk.DefaultPolicy(), Exits: exits.DefaultRules(),
			},
			Store: store.Health{Connected: true, State: "closed"},
			Signals: []signal.Snapshot{
				{Instrument: infy, Strategy: "Sentinel", Price: 128, Trigger: 126.15, Status: signal.Confirmed},
				{Instrument: tcs, Strategy: "Sentinel", Price: 190, Trigger: 201, Status: signal.Wait},
			},
		},
	}

	reg := prometheus.NewRegistry()
	engine.NewMetrics(reg).OpenPositions.Set(2)
	srv := httptest.NewServer(NewServer(ctl, reg, clock.NewFake(now)))
	t.Cleanup(srv.Close)
	return srv, ctl
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestStatusAndSignals(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var st engine.Status
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "c1", st.CycleID)
	assert.Len(t, st.Signals, 2)

	resp, body = do(t, http.MethodGet, srv.URL+"/signals?actionable=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snaps []signal.Snapshot
	require.NoError(t, json.Unmarshal(body, &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, infy.Ticker, snaps[0].Instrument.Ticker)

	_, body = do(t, http.MethodGet, srv.URL+"/signals?status=wait", "")
	require.NoError(t, json.Unmarshal(body, &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, signal.Wait, snaps[0].Status)

	resp, body = do(t, http.MethodGet, srv.URL+"/positions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))
}

func TestHealthReportsStoreOutage(t *testing.T) {
	srv, ctl := newTestServer(t)
	resp, _ := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctl.status.Store.Connected = false
	ctl.status.Banners = []string{engine.BannerStoreDown}
	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "DISCONNECTED")
}

func TestPositionCommands(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/positions", `{"ticker":"INFY","entry":128,"stop":125.44}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p ledger.Position
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, 128.0, p.Entry)
	assert.Equal(t, engine.ManualStrategy, p.Strategy)

	cases := []struct {
		body string
		code int
	}{
		{`{"ticker":"TCS"}`, http.StatusConflict},
		{`{"ticker":"NOPE"}`, http.StatusNotFound},
		{`{"ticker":""}`, http.StatusBadRequest},
		{`{not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, _ := do(t, http.MethodPost, srv.URL+"/positions", tc.body)
		assert.Equal(t, tc.code, resp.StatusCode, tc.body)
	}

	resp, body = do(t, http.MethodPost, srv.URL+"/positions/INFY/close", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tr journal.ClosedTrade
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.Equal(t, 4.0, tr.PnL)
	assert.Equal(t, journal.Win, tr.Result)

	resp, body = do(t, http.MethodPost, srv.URL+"/positions/SBIN/close", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e errorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Contains(t, e.Message, "SBIN")
	assert.NotEmpty(t, e.RequestID)
}

func TestJournalAndAudit(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/journal", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var trades []journal.ClosedTrade
	require.NoError(t, json.Unmarshal(body, &trades))
	assert.Len(t, trades, 2)

	resp, body = do(t, http.MethodGet, srv.URL+"/audit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a struct {
		Trades int     `json:"trades"`
		Wins   int     `json:"wins"`
		NetPnL float64 `json:"net_pnl"`
	}
	require.NoError(t, json.Unmarshal(body, &a))
	assert.Equal(t, 2, a.Trades)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 2.0, a.NetPnL)

	resp, body = do(t, http.MethodGet, srv.URL+"/audit?format=org", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "* PERFORMANCE AUDIT")
	assert.Contains(t, string(body), "Sniper")
}

func TestSettingsUpdate(t *testing.T) {
	srv, ctl := newTestServer(t)

	resp, body := do(t, http.MethodPut, srv.URL+"/settings", `{"auto_buy":true,"exits":{"breakeven-pct":3,"trail-trigger-pct":5,"trail-pct":1.5}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Len(t, ctl.applied, 1)
	got := ctl.applied[0]
	assert.True(t, got.AutoBuy)
	assert.True(t, got.AutoSell, "fields missing from the body keep their value")
	assert.Equal(t, 1.5, got.Exits.TrailPct)
	assert.Equal(t, "Sentinel", got.Mode)

	resp, _ = do(t, http.MethodPut, srv.URL+"/settings", `{"mode":"martingale"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, ctl.applied, 1)
}

func TestMetricsAndNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "sentinel_open_positions 2")

	resp, _ = do(t, http.MethodGet, srv.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
