package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps per-key timestamp arenas guarded by per-key mutexes.
// Keys are independent, so there is no global lock on the hot path; the
// outer map mutex is held only long enough to fetch or create an entry.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]*windowEntry
}

type windowEntry struct {
	mu     sync.Mutex
	stamps []time.Time
	// evicted marks an entry Sweep has removed from the map. A Take that
	// fetched the entry before the sweep must not record on it, or the
	// timestamp is lost and the next caller starts a fresh window.
	evicted bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*windowEntry)}
}

func (s *MemoryStore) entry(key string) *windowEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.keys[key]
	if !ok {
		e = &windowEntry{}
		s.keys[key] = e
	}
	return e
}

func (s *MemoryStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var e *windowEntry
	for {
		e = s.entry(key)
		e.mu.Lock()
		if !e.evicted {
			break
		}
		// lost the race with Sweep; the map now holds a fresh entry
		e.mu.Unlock()
	}
	defer e.mu.Unlock()

	cutoff := now.Add(-window)
	e.stamps = prune(e.stamps, cutoff)

	result := Result{Limit: limit}
	if len(e.stamps) < limit {
		e.stamps = append(e.stamps, now)
		result.Allowed = true
		result.Remaining = limit - len(e.stamps)
		return result, nil
	}

	oldest := e.stamps[0]
	result.RetryAfter = oldest.Add(window).Sub(now)
	if result.RetryAfter < 0 {
		result.RetryAfter = 0
	}
	result.ResetTime = oldest.Add(window)
	return result, nil
}

// Sweep drops keys whose every timestamp has left the window, bounding memory
// for tenants and addresses that stopped sending.
func (s *MemoryStore) Sweep(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.keys {
		e.mu.Lock()
		e.stamps = prune(e.stamps, cutoff)
		if len(e.stamps) == 0 {
			e.evicted = true
			delete(s.keys, key)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Len reports the tracked key count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[idx:]...)
}
