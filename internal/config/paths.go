package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved, absolute file system locations used at runtime
type Paths struct {
	BaseDir       string
	DataDir       string
	WebDir        string
	LogsDir       string
	PreferencesDB string
}

// ResolvePaths anchors relative entries of cfg at baseDir. An empty baseDir
// means the directory of the running executable.
func ResolvePaths(cfg *Config, baseDir string) (*Paths, error) {
	if baseDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		exe, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
		}
		baseDir = filepath.Dir(exe)
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	dataDir := abs(cfg.Paths.DataDir)
	dbPath := cfg.Preferences.SQLitePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(dataDir, dbPath)
	}

	return &Paths{
		BaseDir:       baseDir,
		DataDir:       dataDir,
		WebDir:        abs(cfg.Paths.WebDir),
		LogsDir:       abs(cfg.Paths.LogsDir),
		PreferencesDB: dbPath,
	}, nil
}

// EnsureDirectories creates the writable directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogPathResolution logs every resolved path at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("web_dir", p.WebDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("preferences_db", p.PreferencesDB))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
