package preferences

import (
	"fmt"
	"io"
	"log/slog"

	"petrodash/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the store selected by cfg. dbPath is the resolved sqlite file
// location. The returned closer releases backend resources.
func Open(cfg config.PreferencesConfig, dbPath string, logger *slog.Logger) (Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case config.BackendSQLite:
		s, err := NewSQLiteStore(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendIdP:
		s, err := NewIdPStore(IdPConfig{
			Domain:    cfg.IdPDomain,
			Token:     cfg.IdPToken,
			Namespace: cfg.Namespace,
			Timeout:   cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown preferences backend %q", cfg.Backend)
	}
}
