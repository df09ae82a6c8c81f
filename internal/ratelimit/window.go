// Package ratelimit counts requests per client identifier in fixed time windows.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute
)

type windowState struct {
	count   int
	started time.Time
}

// WindowStore allows up to limit requests per identifier in each window. The counter for an
// identifier resets once its window has elapsed. It satisfies echo's middleware.RateLimiterStore.
type WindowStore struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*windowState
	lastSweep time.Time
}

func NewWindowStore(limit int, window time.Duration) *WindowStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &WindowStore{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*windowState),
	}
}

// Allow records one request for identifier and reports whether it is within the limit.
func (s *WindowStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	state, ok := s.windows[identifier]
	if !ok || now.Sub(state.started) >= s.window {
		state = &windowState{started: now}
		s.windows[identifier] = state
	}
	state.count++
	return state.count <= s.limit, nil
}

// Remaining returns how many requests identifier may still make in its current window.
func (s *WindowStore) Remaining(identifier string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.windows[identifier]
	if !ok || s.now().Sub(state.started) >= s.window {
		return s.limit
	}
	if state.count >= s.limit {
		return 0
	}
	return s.limit - state.count
}

func (s *WindowStore) Limit() int { return s.limit }

// sweep drops expired windows at most once per window. Must be called with s.mu held.
func (s *WindowStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.window {
		return
	}
	for id, state := range s.windows {
		if now.Sub(state.started) >= s.window {
			delete(s.windows, id)
		}
	}
	s.lastSweep = now
}
