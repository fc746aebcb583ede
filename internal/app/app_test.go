package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zomatoclean/internal/config"
	"zomatoclean/pkg/contracts/events"
)

const sampleCSV = `name,rate,approx_cost(for two people),cuisines,location,rest_type,dish_liked
onesta,4.1/5,800,"pizza, cafe", BTM ,casual dining,pasta
,,,,,,
onesta,4.1/5,800,"pizza, cafe", BTM ,casual dining,pasta
empire,NEW,"1,200",north indian,jayanagar,quick bites,
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Metrics.Enabled = false
	cfg.Server.Port = 0
	cfg.Server.RateLimitRPS = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	app, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = app.OperationService.Shutdown(context.Background())
		app.WebSocketHub.Stop()
	})
	return app
}

func do(app *Application, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestNewCreatesDirectories(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg)

	for _, dir := range []string{app.Paths.RawDir, app.Paths.ProcessedDir, app.Paths.LogsDir} {
		assert.DirExists(t, dir)
	}
	assert.Equal(t, 5, app.Manager.GetRegistry().Count())
	assert.Equal(t, ":0", app.Server.Addr)
}

func TestNewRejectsBadExporter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	cfg.Metrics.MetricExporter = "carrier-pigeon"

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenTelemetry")
}

func TestRoutes(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string
		wantCode    int
	}{
		{"health", http.MethodGet, "/api/health", "", "", http.StatusOK},
		{"liveness", http.MethodGet, "/api/health/live", "", "", http.StatusOK},
		{"version", http.MethodGet, "/api/version", "", "", http.StatusOK},
		{"readiness before hub start", http.MethodGet, "/api/health/ready", "", "", http.StatusServiceUnavailable},
		{"list runs", http.MethodGet, "/api/runs", "", "", http.StatusOK},
		{"unknown run", http.MethodGet, "/api/runs/missing", "", "", http.StatusNotFound},
		{"cancel unknown run", http.MethodPost, "/api/runs/missing/cancel", "", "", http.StatusNotFound},
		{"start with wrong content type", http.MethodPost, "/api/runs", "text/plain", "input_path=x", http.StatusBadRequest},
		{"start with output outside processed dir", http.MethodPost, "/api/runs", "application/json", `{"output_dir":"/etc"}`, http.StatusBadRequest},
		{"start with input outside raw dir", http.MethodPost, "/api/runs", "application/json", `{"input_path":"/etc/passwd"}`, http.StatusBadRequest},
		{"list outputs", http.MethodGet, "/api/outputs", "", "", http.StatusOK},
		{"no report yet", http.MethodGet, "/api/reports/latest", "", "", http.StatusNotFound},
		{"metrics disabled", http.MethodGet, "/metrics", "", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/nope", "", "", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/health", "", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(app, tt.method, tt.target, tt.contentType, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestReadinessAfterHubStart(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	app.WebSocketHub.Start()

	rec := do(app, http.MethodGet, "/api/health/ready", "", "")

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRunThroughAPI(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	input := filepath.Join(app.Paths.RawDir, "zomato.csv")
	require.NoError(t, os.WriteFile(input, []byte(sampleCSV), 0644))

	rec := do(app, http.MethodPost, "/api/runs", "application/json", `{"input_path":"`+filepath.ToSlash(input)+`"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	runID := accepted["run_id"]
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		return app.OperationService.ActiveRun() == ""
	}, 10*time.Second, 20*time.Millisecond)

	rec = do(app, http.MethodGet, "/api/runs/"+runID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var details struct {
		Summary struct {
			Status string `json:"status"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, "completed", details.Summary.Status)

	rec = do(app, http.MethodGet, "/api/reports/latest", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(app, http.MethodGet, "/api/outputs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var outputs struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outputs))
	assert.Equal(t, 2, outputs.Count)
}

func TestWebSocketConnect(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	app.WebSocketHub.Start()

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	app.WebSocketHub.Start()

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStartStop(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx, cancel))

	assert.True(t, app.WebSocketHub.Stats()["running"].(bool))
	assert.NoError(t, app.Stop(context.Background()))
}

func TestCORSConfigFollowsServerConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.AllowedOrigins = []string{"http://dashboard.local"}
	app := newTestApp(t, cfg)

	cors := app.getCORSConfig()

	assert.True(t, cors.OriginAllowed("http://dashboard.local"))
	assert.False(t, cors.OriginAllowed("http://localhost:8080"))
}
