package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sliding windows in process. It is the fallback when Redis
// is unavailable and the only store when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	admitted []time.Time
	span     time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window), now: time.Now}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var admitted []time.Time
	if w, ok := s.windows[key]; ok {
		admitted = prune(w.admitted, now.Add(-limit.Window))
	}

	res := &Result{Limit: limit.Requests}
	if len(admitted) < limit.Requests {
		admitted = append(admitted, now)
		res.Allowed = true
	}
	res.Remaining = limit.Requests - len(admitted)
	if len(admitted) > 0 {
		res.ResetAt = admitted[0].Add(limit.Window)
	} else {
		res.ResetAt = now.Add(limit.Window)
	}

	if len(admitted) == 0 {
		delete(s.windows, key)
	} else {
		s.windows[key] = &window{admitted: admitted, span: limit.Window}
	}
	return res, nil
}

// Sweep drops every key whose newest request has left its window and returns
// how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, w := range s.windows {
		newest := w.admitted[len(w.admitted)-1]
		if !newest.Add(w.span).After(now) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports how many keys currently hold a window.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// prune drops timestamps at or before cutoff. Timestamps are appended in order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
