package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray config file is picked up
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 25*time.Second, cfg.Server.RequestTimeout)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Equal(t, "http://localhost:9000/api", cfg.Upstream.BaseURL)
				assert.Equal(t, 20*time.Second, cfg.Upstream.Timeout)
				assert.Equal(t, BackendSQLite, cfg.Preferences.Backend)
				assert.Equal(t, "petrodash", cfg.Preferences.Namespace)
				assert.Equal(t, "*/15 * * * *", cfg.Refresh.Schedule)
				assert.Equal(t, []string{"futures-spreads", "terminal-inventories"}, cfg.Refresh.Views)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"PDASH_SERVER_PORT":           "9090",
				"PDASH_UPSTREAM_BASE_URL":     "https://md.example.com/v2",
				"PDASH_UPSTREAM_RPS":          "2.5",
				"PDASH_PREFERENCES_BACKEND":   "memory",
				"PDASH_REFRESH_VIEWS":         "nomination-schedules",
				"PDASH_LOGGING_FORMAT":        "text",
				"PDASH_SECURITY_ENABLE_CORS":  "false",
				"PDASH_REFRESH_SCHEDULE":      "0 * * * *",
				"PDASH_WEBSOCKET_PONG_WAIT":   "90s",
				"PDASH_LOGGING_OUTPUT":        "console",
				"PDASH_PREFERENCES_NAMESPACE": "desk",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "https://md.example.com/v2", cfg.Upstream.BaseURL)
				assert.Equal(t, 2.5, cfg.Upstream.RPS)
				assert.Equal(t, BackendMemory, cfg.Preferences.Backend)
				assert.Equal(t, []string{"nomination-schedules"}, cfg.Refresh.Views)
				assert.False(t, cfg.Security.EnableCORS)
				assert.Equal(t, 90*time.Second, cfg.WebSocket.PongWait)
				assert.Equal(t, "desk", cfg.Preferences.Namespace)
				// forced back to structured dual output
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"PDASH_SERVER_PORT": "99999"},
			wantErr: "invalid server port",
		},
		{
			name:    "upstream url without scheme",
			env:     map[string]string{"PDASH_UPSTREAM_BASE_URL": "md.example.com"},
			wantErr: "invalid upstream base url",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"PDASH_PREFERENCES_BACKEND": "redis"},
			wantErr: "unknown preferences backend",
		},
		{
			name:    "idp without domain",
			env:     map[string]string{"PDASH_PREFERENCES_BACKEND": "idp"},
			wantErr: "requires an identity provider domain",
		},
		{
			name:    "bad cron schedule",
			env:     map[string]string{"PDASH_REFRESH_SCHEDULE": "every five minutes"},
			wantErr: "invalid refresh schedule",
		},
		{
			name: "bad schedule ignored when refresh disabled",
			env: map[string]string{
				"PDASH_REFRESH_ENABLED":  "false",
				"PDASH_REFRESH_SCHEDULE": "nope",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Refresh.Enabled)
			},
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"PDASH_UPSTREAM_TIMEOUT": "soon"},
			wantErr: "failed to load config from env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_FileBeneathEnvironment(t *testing.T) {
	dir := isolate(t)

	yamlContent := `
server:
  port: 7070
upstream:
  base_url: https://file.example.com/api
  timeout: 5s
preferences:
  backend: memory
refresh:
  views: [pipeline-transit]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "petrodash.yaml"), []byte(yamlContent), 0o644))
	t.Setenv("PDASH_SERVER_PORT", "6060")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6060, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "https://file.example.com/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, BackendMemory, cfg.Preferences.Backend)
	assert.Equal(t, []string{"pipeline-transit"}, cfg.Refresh.Views)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "defaults survive when the file is silent")
}

func TestLoad_ExplicitConfigPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 5050\n"), 0o644))
	t.Setenv("PDASH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5050, cfg.Server.Port)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "petrodash.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, int64(20<<20), cfg.Upstream.MaxUpload)
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	base := t.TempDir()

	paths, err := ResolvePaths(cfg, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(base, "data", "preferences.db"), paths.PreferencesDB)

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.DataDir))
	assert.True(t, FileExists(paths.LogsDir))

	abs := filepath.Join(t.TempDir(), "prefs.sqlite")
	cfg.Preferences.SQLitePath = abs
	paths, err = ResolvePaths(cfg, base)
	require.NoError(t, err)
	assert.Equal(t, abs, paths.PreferencesDB)
}
