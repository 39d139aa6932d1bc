package preferences

import (
	"context"
	"sync"
)

// MemoryStore keeps preferences in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]Preferences
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]Preferences)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Preferences, error) {
	if err := ctx.Err(); err != nil {
		return Preferences{}, loadError("memory", userID, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID].Clone(), nil
}

func (s *MemoryStore) Set(ctx context.Context, userID string, prefs Preferences) error {
	if err := ctx.Err(); err != nil {
		return saveError("memory", userID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = prefs.Clone()
	return nil
}
