// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION
// =============================================================================

// DefaultIdleTimeout is how long a session may sit idle before it is
// considered expired.
const DefaultIdleTimeout = 15 * time.Minute

// Session is the state of one interactive run. Safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id           string
	startTime    time.Time
	lastActivity time.Time
	idleTimeout  time.Duration

	// budget is the per-request cost ceiling in dollars per 1K units.
	// Zero penalizes every paid backend during routing.
	budget float64
}

// New creates a session with a fresh ID and the given budget.
func New(budget float64) *Session {
	now := time.Now()
	return &Session{
		id:           uuid.New().String(),
		startTime:    now,
		lastActivity: now,
		idleTimeout:  DefaultIdleTimeout,
		budget:       budget,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// StartTime returns when the session began.
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// Touch records activity, resetting the idle clock.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// Idle returns how long the session has been without activity.
func (s *Session) Idle() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// Duration returns how long the session has been running.
func (s *Session) Duration() time.Duration {
	return time.Since(s.startTime)
}

// Expired reports whether the idle timeout has elapsed.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idleTimeout > 0 && time.Since(s.lastActivity) > s.idleTimeout
}

// SetIdleTimeout overrides the idle timeout. Zero disables expiry.
func (s *Session) SetIdleTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleTimeout = d
}

// Budget returns the per-request cost ceiling.
func (s *Session) Budget() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget
}

// SetBudget updates the per-request cost ceiling.
func (s *Session) SetBudget(b float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b < 0 {
		b = 0
	}
	s.budget = b
}
