package auth

import (
	"context"
	"sync"
	"time"
)

type windowKey struct {
	adminID    int64
	sourceAddr string
}

// MemoryWindowStore is a process-local WindowStore. It backs the tests and
// suits single-instance deployments where window state need not survive a
// restart.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[windowKey]Window
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[windowKey]Window)}
}

func (s *MemoryWindowStore) Current(ctx context.Context, adminID int64, sourceAddr string, oldest time.Time) (Window, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[windowKey{adminID, sourceAddr}]
	if !ok || w.WindowStart.Before(oldest) {
		return Window{}, false, nil
	}
	return w, true, nil
}

func (s *MemoryWindowStore) RecordFailure(ctx context.Context, adminID int64, sourceAddr string, now, oldest time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := windowKey{adminID, sourceAddr}
	w, ok := s.windows[key]
	if !ok || w.WindowStart.Before(oldest) {
		w = Window{AdminID: adminID, SourceAddr: sourceAddr, WindowStart: now, Attempts: 1}
	} else {
		w.Attempts++
	}
	s.windows[key] = w
	return w.Attempts, nil
}

func (s *MemoryWindowStore) ResetAttempts(ctx context.Context, adminID int64, sourceAddr string, oldest time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := windowKey{adminID, sourceAddr}
	w, ok := s.windows[key]
	if !ok || w.WindowStart.Before(oldest) {
		return nil
	}
	w.Attempts = 0
	s.windows[key] = w
	return nil
}

func (s *MemoryWindowStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for key, w := range s.windows {
		if w.WindowStart.Before(cutoff) {
			delete(s.windows, key)
			purged++
		}
	}
	return purged, nil
}

// Len reports the number of stored windows, stale ones included.
func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
