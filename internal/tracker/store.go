package tracker

import (
	"sync"
	"time"

	"electiontracker/internal/election"
)

// Store holds the current snapshot. Only Service writes to it, reads hand
// out clones so callers never share the backing slice.
type Store struct {
	mu          sync.RWMutex
	snapshot    election.Snapshot
	committedAt time.Time
	hasData     bool
}

// Replace swaps in a new snapshot and returns the one it superseded.
func (s *Store) Replace(snapshot election.Snapshot, at time.Time) (previous election.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous = s.snapshot
	s.snapshot = snapshot.Clone()
	s.committedAt = at
	s.hasData = true
	return previous
}

func (s *Store) Current() (election.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone(), s.hasData
}

// CommittedAt is when the current snapshot was stored.
func (s *Store) CommittedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committedAt, s.hasData
}
