package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "PDASH"

// Preference store backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendIdP    = "idp"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Security    SecurityConfig    `yaml:"security" envconfig:"SECURITY"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Upstream    UpstreamConfig    `yaml:"upstream" envconfig:"UPSTREAM"`
	Preferences PreferencesConfig `yaml:"preferences" envconfig:"PREFERENCES"`
	Refresh     RefreshConfig     `yaml:"refresh" envconfig:"REFRESH"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
	WebSocket   WebSocketConfig   `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"25s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/petrodash.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// UpstreamConfig describes the remote market-data API
type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL" default:"http://localhost:9000/api"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"20s"`
	RPS       float64       `yaml:"rps" envconfig:"RPS" default:"10"`
	Burst     int           `yaml:"burst" envconfig:"BURST" default:"5"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT" default:"petrodash/1.0"`
	MaxUpload int64         `yaml:"max_upload" envconfig:"MAX_UPLOAD" default:"20971520"`
}

// PreferencesConfig selects and configures the preference store
type PreferencesConfig struct {
	Backend    string        `yaml:"backend" envconfig:"BACKEND" default:"sqlite"`
	SQLitePath string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH" default:"preferences.db"`
	IdPDomain  string        `yaml:"idp_domain" envconfig:"IDP_DOMAIN"`
	IdPToken   string        `yaml:"idp_token" envconfig:"IDP_TOKEN"`
	Namespace  string        `yaml:"namespace" envconfig:"NAMESPACE" default:"petrodash"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10s"`
}

// RefreshConfig controls the scheduled refresh of pinned views
type RefreshConfig struct {
	Enabled  bool     `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	Schedule string   `yaml:"schedule" envconfig:"SCHEDULE" default:"*/15 * * * *"`
	Views    []string `yaml:"views" envconfig:"VIEWS" default:"futures-spreads,terminal-inventories"`
}

// PathsConfig contains file system paths, relative to the executable unless absolute
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	WebDir  string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and an optional config file.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// pick keeps the env value when its variable was set explicitly or the file
// leaves the field empty; otherwise the file value replaces the default.
func pick[T comparable](envVar string, envVal, fileVal T) T {
	var zero T
	if _, set := os.LookupEnv(EnvPrefix + "_" + envVar); set || fileVal == zero {
		return envVal
	}
	return fileVal
}

func pickSlice(envVar string, envVal, fileVal []string) []string {
	if _, set := os.LookupEnv(EnvPrefix + "_" + envVar); set || len(fileVal) == 0 {
		return envVal
	}
	return fileVal
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(f, e Config) Config {
	e.Server.Port = pick("SERVER_PORT", e.Server.Port, f.Server.Port)
	e.Server.ReadTimeout = pick("SERVER_READ_TIMEOUT", e.Server.ReadTimeout, f.Server.ReadTimeout)
	e.Server.WriteTimeout = pick("SERVER_WRITE_TIMEOUT", e.Server.WriteTimeout, f.Server.WriteTimeout)
	e.Server.IdleTimeout = pick("SERVER_IDLE_TIMEOUT", e.Server.IdleTimeout, f.Server.IdleTimeout)
	e.Server.ShutdownTimeout = pick("SERVER_SHUTDOWN_TIMEOUT", e.Server.ShutdownTimeout, f.Server.ShutdownTimeout)
	e.Server.RequestTimeout = pick("SERVER_REQUEST_TIMEOUT", e.Server.RequestTimeout, f.Server.RequestTimeout)

	e.Security.AllowedOrigins = pickSlice("SECURITY_ALLOWED_ORIGINS", e.Security.AllowedOrigins, f.Security.AllowedOrigins)
	e.Security.RateLimit.RPS = pick("SECURITY_RATE_LIMIT_RPS", e.Security.RateLimit.RPS, f.Security.RateLimit.RPS)
	e.Security.RateLimit.Burst = pick("SECURITY_RATE_LIMIT_BURST", e.Security.RateLimit.Burst, f.Security.RateLimit.Burst)

	e.Logging.Level = pick("LOGGING_LEVEL", e.Logging.Level, f.Logging.Level)
	e.Logging.FilePath = pick("LOGGING_FILE_PATH", e.Logging.FilePath, f.Logging.FilePath)

	e.Upstream.BaseURL = pick("UPSTREAM_BASE_URL", e.Upstream.BaseURL, f.Upstream.BaseURL)
	e.Upstream.Timeout = pick("UPSTREAM_TIMEOUT", e.Upstream.Timeout, f.Upstream.Timeout)
	e.Upstream.RPS = pick("UPSTREAM_RPS", e.Upstream.RPS, f.Upstream.RPS)
	e.Upstream.Burst = pick("UPSTREAM_BURST", e.Upstream.Burst, f.Upstream.Burst)
	e.Upstream.UserAgent = pick("UPSTREAM_USER_AGENT", e.Upstream.UserAgent, f.Upstream.UserAgent)

	e.Preferences.Backend = pick("PREFERENCES_BACKEND", e.Preferences.Backend, f.Preferences.Backend)
	e.Preferences.SQLitePath = pick("PREFERENCES_SQLITE_PATH", e.Preferences.SQLitePath, f.Preferences.SQLitePath)
	e.Preferences.IdPDomain = pick("PREFERENCES_IDP_DOMAIN", e.Preferences.IdPDomain, f.Preferences.IdPDomain)
	e.Preferences.IdPToken = pick("PREFERENCES_IDP_TOKEN", e.Preferences.IdPToken, f.Preferences.IdPToken)
	e.Preferences.Namespace = pick("PREFERENCES_NAMESPACE", e.Preferences.Namespace, f.Preferences.Namespace)

	e.Refresh.Schedule = pick("REFRESH_SCHEDULE", e.Refresh.Schedule, f.Refresh.Schedule)
	e.Refresh.Views = pickSlice("REFRESH_VIEWS", e.Refresh.Views, f.Refresh.Views)

	e.Paths.DataDir = pick("PATHS_DATA_DIR", e.Paths.DataDir, f.Paths.DataDir)
	e.Paths.WebDir = pick("PATHS_WEB_DIR", e.Paths.WebDir, f.Paths.WebDir)
	e.Paths.LogsDir = pick("PATHS_LOGS_DIR", e.Paths.LogsDir, f.Paths.LogsDir)

	return e
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid upstream base url: %q", c.Upstream.BaseURL)
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	switch c.Preferences.Backend {
	case BackendMemory, BackendSQLite:
	case BackendIdP:
		if c.Preferences.IdPDomain == "" {
			return fmt.Errorf("preferences backend %q requires an identity provider domain", BackendIdP)
		}
	default:
		return fmt.Errorf("unknown preferences backend: %q", c.Preferences.Backend)
	}

	if c.Refresh.Enabled {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.Refresh.Schedule, err)
		}
	}

	// JSON to stdout and file, always
	c.Logging.Format = "json"
	if c.Logging.Output != "both" && c.Logging.Output != "file" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/petrodash.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"petrodash.yaml",
		"configs/petrodash.yaml",
		"../configs/petrodash.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  25 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/petrodash.log",
		},
		Upstream: UpstreamConfig{
			BaseURL:   "http://localhost:9000/api",
			Timeout:   20 * time.Second,
			RPS:       10,
			Burst:     5,
			UserAgent: "petrodash/1.0",
			MaxUpload: 20 << 20,
		},
		Preferences: PreferencesConfig{
			Backend:    BackendSQLite,
			SQLitePath: "preferences.db",
			Namespace:  "petrodash",
			Timeout:    10 * time.Second,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Schedule: "*/15 * * * *",
			Views:    []string{"futures-spreads", "terminal-inventories"},
		},
		Paths: PathsConfig{
			DataDir: "data",
			WebDir:  "web",
			LogsDir: "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
