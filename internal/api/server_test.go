package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/logging"
	"github.com/nerrad567/sensor-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensor-relay/internal/persistence"
)

// fakeDashboards upgrades connections and counts them.
type fakeDashboards struct {
	clients int
	upgrade bool
}

func (f *fakeDashboards) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !f.upgrade {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	u := websocket.Upgrader{}
	conn, err := u.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	//nolint:errcheck // Test echo
	conn.WriteMessage(websocket.TextMessage, []byte(`{"light":"N/A","sound":"N/A","motion":"N/A"}`))
	conn.Close()
}

func (f *fakeDashboards) ClientCount() int { return f.clients }

type fakeBroker struct{ state mqtt.State }

func (f fakeBroker) State() mqtt.State { return f.state }

type fakeHistory struct {
	readings  []persistence.StoredReading
	err       error
	lastLimit int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]persistence.StoredReading, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.readings, nil
}

func testDeps() Deps {
	return Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WebSocketPath:  "/ws",
		Logger:         logging.Discard(),
		Dashboards:     &fakeDashboards{clients: 2},
		Broker:         fakeBroker{state: mqtt.StateConnected},
		StorageBackend: config.StorageBackendSQLite,
		Version:        "test",
	}
}

func testServer(t *testing.T, mutate func(*Deps)) *Server {
	t.Helper()
	deps := testDeps()
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func TestNew_RequiresDeps(t *testing.T) {
	deps := testDeps()
	deps.Logger = nil
	if _, err := New(deps); err == nil {
		t.Error("New() without logger: error = nil")
	}

	deps = testDeps()
	deps.Dashboards = nil
	if _, err := New(deps); err == nil {
		t.Error("New() without dashboards: error = nil")
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv := testServer(t, nil)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := get(t, srv, path)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, w.Code, http.StatusOK)
		}

		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp["status"] != "ok" {
			t.Errorf("%s status = %v, want ok", path, resp["status"])
		}
		if resp["version"] != "test" {
			t.Errorf("%s version = %v, want test", path, resp["version"])
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want %q", ct, "application/json")
		}
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	w := get(t, testServer(t, nil), "/health")

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantStatus int
		wantACAO   string
	}{
		{"empty list allows all", nil, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
		{"listed origin", []string{"http://dash.local"}, "http://dash.local", http.StatusNoContent, "http://dash.local"},
		{"wildcard", []string{"*"}, "http://any.local", http.StatusNoContent, "http://any.local"},
		{"unlisted origin", []string{"http://dash.local"}, "http://evil.local", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, func(d *Deps) { d.Config.CORS.AllowedOrigins = tt.allowed })

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			w := httptest.NewRecorder()
			srv.buildRouter().ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("preflight status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantACAO {
				t.Errorf("ACAO = %q, want %q", got, tt.wantACAO)
			}
		})
	}
}

func TestCORS_SimpleRequest(t *testing.T) {
	srv := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
}

func TestRequestID_RejectsOversized(t *testing.T) {
	srv := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", maxRequestIDLen+1))
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); len(got) > maxRequestIDLen || got == "" {
		t.Errorf("X-Request-ID = %q, want a freshly generated id", got)
	}
}

func TestRecovery(t *testing.T) {
	srv := testServer(t, func(d *Deps) {
		d.Metrics = http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	})

	w := get(t, srv, "/metrics")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Code != ErrCodeInternal {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeInternal)
	}
	if e.RequestID == "" || e.RequestID != w.Header().Get("X-Request-ID") {
		t.Errorf("request_id = %q, want the X-Request-ID header %q", e.RequestID, w.Header().Get("X-Request-ID"))
	}
}

func TestNotFound(t *testing.T) {
	w := get(t, testServer(t, nil), "/api/v1/nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if !strings.Contains(w.Body.String(), ErrCodeNotFound) {
		t.Errorf("body = %s, want structured not_found error", w.Body.String())
	}
}

// ─── Status & Metrics ──────────────────────────────────────────────

func TestStatus(t *testing.T) {
	srv := testServer(t, func(d *Deps) {
		d.History = &fakeHistory{}
		d.DBStats = func() sql.DBStats { return sql.DBStats{OpenConnections: 1, Idle: 1} }
	})

	w := get(t, srv, "/api/v1/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", w.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Broker.Connected || resp.Broker.State != "connected" {
		t.Errorf("broker = %+v, want connected", resp.Broker)
	}
	if resp.Dashboards.ConnectedClients != 2 {
		t.Errorf("connected clients = %d, want 2", resp.Dashboards.ConnectedClients)
	}
	if resp.Storage.Backend != "sqlite" || !resp.Storage.History {
		t.Errorf("storage = %+v, want sqlite with history", resp.Storage)
	}
	if resp.Storage.Database == nil || resp.Storage.Database.OpenConnections != 1 {
		t.Errorf("database = %+v, want pool stats", resp.Storage.Database)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("runtime goroutines = 0")
	}
}

func TestStatus_BrokerDown(t *testing.T) {
	srv := testServer(t, func(d *Deps) {
		d.Broker = fakeBroker{state: mqtt.StateConnecting}
		d.StorageBackend = config.StorageBackendNone
	})

	var resp StatusResponse
	if err := json.Unmarshal(get(t, srv, "/api/v1/status").Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Broker.Connected || resp.Broker.State != "connecting" {
		t.Errorf("broker = %+v, want connecting", resp.Broker)
	}
	if resp.Storage.History || resp.Storage.Database != nil || resp.Storage.Writes != nil {
		t.Errorf("storage = %+v, want no history, database or write counters", resp.Storage)
	}
}

func TestStatus_WriteCounters(t *testing.T) {
	srv := testServer(t, func(d *Deps) {
		d.StorageBackend = config.StorageBackendInfluxDB
		d.WriteStats = func() WriteMetrics { return WriteMetrics{Queued: 12, Failed: 3} }
	})

	w := get(t, srv, "/api/v1/status")
	if !strings.Contains(w.Body.String(), `"writes":{"queued":12,"failed":3}`) {
		t.Errorf("body = %s, want write counters", w.Body.String())
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Storage.Database != nil {
		t.Errorf("database = %+v, want nil for a non-SQL store", resp.Storage.Database)
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := testServer(t, func(d *Deps) {
		d.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "relay_dashboard_clients 2\n") //nolint:errcheck // Test handler
		})
	})

	w := get(t, srv, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "relay_dashboard_clients") {
		t.Errorf("/metrics = %d %q", w.Code, w.Body.String())
	}

	// Without a metrics handler the route does not exist.
	if w := get(t, testServer(t, nil), "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("/metrics without handler = %d, want 404", w.Code)
	}
}

func TestPanelRoutes(t *testing.T) {
	var gotPath string
	srv := testServer(t, func(d *Deps) {
		d.Panel = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			io.WriteString(w, "<!DOCTYPE html>") //nolint:errcheck // Test handler
		})
	})

	w := get(t, srv, "/panel/static/app.js")
	if w.Code != http.StatusOK {
		t.Fatalf("/panel/static/app.js = %d, want 200", w.Code)
	}
	if gotPath != "/static/app.js" {
		t.Errorf("panel saw path %q, want prefix stripped", gotPath)
	}

	redirects := []struct {
		path string
		code int
	}{
		{"/panel", http.StatusMovedPermanently},
		{"/", http.StatusFound},
	}
	for _, tt := range redirects {
		w := get(t, srv, tt.path)
		if w.Code != tt.code || w.Header().Get("Location") != "/panel/" {
			t.Errorf("GET %s = %d -> %q, want %d -> /panel/", tt.path, w.Code, w.Header().Get("Location"), tt.code)
		}
	}

	// Without a panel the root is an ordinary unknown route.
	if w := get(t, testServer(t, nil), "/"); w.Code != http.StatusNotFound {
		t.Errorf("/ without panel = %d, want 404", w.Code)
	}
}

// ─── Readings ──────────────────────────────────────────────────────

func TestReadings(t *testing.T) {
	recordedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{readings: []persistence.StoredReading{
		{ID: 2, Light: "N/A", Sound: "Very loud!", Motion: "N/A", RecordedAt: recordedAt},
		{ID: 1, Light: "N/A", Sound: "N/A", Motion: "Motion detected!", RecordedAt: recordedAt.Add(-time.Minute)},
	}}
	srv := testServer(t, func(d *Deps) { d.History = history })

	w := get(t, srv, "/api/v1/readings?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if history.lastLimit != 2 {
		t.Errorf("Recent() limit = %d, want 2", history.lastLimit)
	}

	var resp struct {
		Readings []persistence.StoredReading `json:"readings"`
		Count    int                         `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || resp.Readings[0].Sound != "Very loud!" {
		t.Errorf("response = %+v", resp)
	}
}

func TestReadings_Limit(t *testing.T) {
	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{query: "", wantCode: http.StatusOK, wantLimit: persistence.DefaultHistoryLimit},
		{query: "?limit=" + strconv.Itoa(persistence.MaxHistoryLimit), wantCode: http.StatusOK, wantLimit: persistence.MaxHistoryLimit},
		{query: "?limit=" + strconv.Itoa(persistence.MaxHistoryLimit+1), wantCode: http.StatusBadRequest},
		{query: "?limit=0", wantCode: http.StatusBadRequest},
		{query: "?limit=abc", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			history := &fakeHistory{}
			srv := testServer(t, func(d *Deps) { d.History = history })

			w := get(t, srv, "/api/v1/readings"+tt.query)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && history.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", history.lastLimit, tt.wantLimit)
			}
		})
	}
}

func TestReadings_Unsupported(t *testing.T) {
	srv := testServer(t, func(d *Deps) { d.StorageBackend = config.StorageBackendRedis })

	w := get(t, srv, "/api/v1/readings")
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
	if !strings.Contains(w.Body.String(), "redis") {
		t.Errorf("body = %s, want backend name", w.Body.String())
	}
}

func TestReadings_StoreError(t *testing.T) {
	srv := testServer(t, func(d *Deps) { d.History = &fakeHistory{err: errors.New("database is locked")} })

	w := get(t, srv, "/api/v1/readings")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "locked") {
		t.Error("internal error detail leaked to client")
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	dashboards := &fakeDashboards{upgrade: true}
	srv := testServer(t, func(d *Deps) { d.Dashboards = dashboards })

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil")
	}
	addr := srv.Addr()
	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	// The WebSocket route survives the middleware stack.
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !strings.Contains(string(msg), `"light":"N/A"`) {
		t.Errorf("frame = %s", msg)
	}
	ws.Close()

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	if _, err := http.Get("http://" + addr + "/health"); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	first := testServer(t, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer first.Close()

	_, rawPort, _ := strings.Cut(first.Addr(), ":")
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		t.Fatalf("parsing port %q: %v", rawPort, err)
	}
	second := testServer(t, func(d *Deps) { d.Config.Port = port })
	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Error("Start() on a bound port: error = nil")
	}
}
