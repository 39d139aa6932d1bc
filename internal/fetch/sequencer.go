package fetch

import "sync"

// Ticket identifies one issued request for a key
type Ticket struct {
	Key string
	Seq uint64
}

// Sequencer hands out monotonically increasing tickets per key. Only the
// most recently issued ticket for a key is current.
type Sequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// NewSequencer creates an empty sequencer
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// Next issues a ticket that supersedes every earlier ticket for key
func (s *Sequencer) Next(key string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[key]++
	return Ticket{Key: key, Seq: s.latest[key]}
}

// Current reports whether t is still the latest ticket for its key
func (s *Sequencer) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[t.Key] == t.Seq
}

// Latest returns the last sequence number issued for key, 0 if none
func (s *Sequencer) Latest(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key]
}
