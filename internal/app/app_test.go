package app

import (
	"context"
	"encoding/json"
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

	"petrodash/internal/config"
	"petrodash/internal/infrastructure"
	"petrodash/internal/services"
	"petrodash/internal/shared/testutil"
	ws "petrodash/internal/websocket"
)

func newTestApp(t *testing.T) (*Application, *httptest.Server) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/futures/spreads":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"2023":{"1/2":1,"1/3":2},"2024":{"1/2":3,"1/3":null}}`))
		default:
			http.Error(w, "no such series", http.StatusBadGateway)
		}
	}))
	t.Cleanup(upstream.Close)

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "web"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "web", "index.html"), []byte(`<h1>{{.AppName}}</h1>`), 0o644))

	cfg := config.Default()
	cfg.Upstream.BaseURL = upstream.URL + "/api"
	cfg.Preferences.Backend = config.BackendMemory
	cfg.Refresh.Enabled = false
	cfg.Security.RateLimit.Enabled = false

	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(Options{
		Config:  cfg,
		BaseDir: base,
		Logger:  logger,
		OTel:    &infrastructure.OTelConfig{ServiceName: config.AppName, TraceExporter: "none", MetricExporter: "none"},
		Build:   services.BuildInfo{Version: "0.0.1-test"},
	})
	require.NoError(t, err)

	a.WebSocketHub.Start()
	server := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		server.Close()
		a.WebSocketHub.Stop()
		require.NoError(t, a.OTelProviders.Shutdown(context.Background()))
	})
	return a, server
}

func do(t *testing.T, server *httptest.Server, method, path, user, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(config.UserIDHeader, user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApplication_HealthAndVersion(t *testing.T) {
	_, server := newTestApp(t)

	resp := do(t, server, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = do(t, server, http.MethodGet, "/api/version", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var version map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&version))
	assert.Equal(t, "0.0.1-test", version["version"])

	resp = do(t, server, http.MethodGet, "/api/health/ready", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplication_ChartThroughUpstream(t *testing.T) {
	_, server := newTestApp(t)

	resp := do(t, server, http.MethodGet, "/api/views/futures-spreads/chart?window=-1", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chart services.Chart
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chart))
	assert.Equal(t, "futures-spreads", chart.View)
	assert.Len(t, chart.Labels, 2)
	assert.Equal(t, "2024", chart.Anchor)

	resp = do(t, server, http.MethodGet, "/api/views/futures-spreads/state", "alice", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/views/pipeline-transit/chart", "alice", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestApplication_PreferencesRequireUser(t *testing.T) {
	_, server := newTestApp(t)

	resp := do(t, server, http.MethodGet, "/api/preferences", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, server, http.MethodPut, "/api/preferences/tariff", "alice", `{"value":1.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/api/preferences", "alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prefs map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&prefs))
	assert.Equal(t, 1.5, prefs["tariff_constant"])

	resp = do(t, server, http.MethodPut, "/api/preferences/tariff", "alice", `{"value":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApplication_NotFoundAndDashboard(t *testing.T) {
	_, server := newTestApp(t)

	resp := do(t, server, http.MethodGet, "/api/nothing-here", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, server, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestApplication_WebSocketReceivesPreferenceUpdates(t *testing.T) {
	_, server := newTestApp(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?user=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() ws.Message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg ws.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}
	assert.Equal(t, ws.TypeConnection, read().Type)

	resp := do(t, server, http.MethodPost, "/api/preferences/holidays", "alice", `{"date":"2024-12-25","name":"Christmas"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ws.TypePreferencesUpdated, read().Type)
}
