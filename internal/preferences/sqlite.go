package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const preferencesTable = `
CREATE TABLE IF NOT EXISTS preferences (
	user_id    TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`

// SQLiteStore keeps preferences as JSON documents in a local sqlite file
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(preferencesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (Preferences, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM preferences WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}.Clone(), nil
	}
	if err != nil {
		return Preferences{}, loadError("sqlite", userID, err)
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return Preferences{}, loadError("sqlite", userID, err)
	}
	return prefs.Clone(), nil
}

func (s *SQLiteStore) Set(ctx context.Context, userID string, prefs Preferences) error {
	data, err := json.Marshal(prefs.Clone())
	if err != nil {
		return saveError("sqlite", userID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), s.now().UTC())
	if err != nil {
		return saveError("sqlite", userID, err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
