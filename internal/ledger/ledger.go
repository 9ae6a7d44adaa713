// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"log"
	"sync"
	"time"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one recorded interaction. Entries are immutable once
// recorded.
type Entry struct {
	// Timestamp is when the interaction completed.
	Timestamp time.Time `json:"timestamp"`
	// SessionID ties the entry to the session that produced it.
	SessionID string `json:"session_id"`
	// TaskType is the classified task category.
	TaskType string `json:"task_type"`
	// Backend is the backend that executed (or failed to execute).
	Backend string `json:"backend"`
	// Success mirrors the execution result.
	Success bool `json:"success"`
	// Score is the routing score the backend was selected with.
	Score float64 `json:"score"`
	// Cost is the dollar cost of the call.
	Cost float64 `json:"cost"`
	// ExecutionTime is the wall-clock duration of the call.
	ExecutionTime time.Duration `json:"execution_time"`
	// TokensUsed is the total token usage, 0 when unreported.
	TokensUsed int `json:"tokens_used"`
}

// =============================================================================
// STATS
// =============================================================================

// Stats is the derived view over the recorded history. Always
// recomputed from the entries, never cached.
type Stats struct {
	// TotalInteractions is the number of recorded entries.
	TotalInteractions int `json:"total_interactions"`
	// SuccessRate is successes over total, 0 for an empty ledger.
	SuccessRate float64 `json:"success_rate"`
	// TotalCost is the sum of entry costs.
	TotalCost float64 `json:"total_cost"`
	// AverageConfidence is the mean routing score across entries.
	AverageConfidence float64 `json:"average_confidence"`
	// ModelUsage counts entries per backend.
	ModelUsage map[string]int `json:"model_usage"`
}

// =============================================================================
// LEDGER
// =============================================================================

// Sink receives each entry as it is recorded. Sinks are best effort; a
// failing sink never fails the interaction.
type Sink interface {
	Append(e Entry) error
}

// Ledger is the in-memory interaction history plus optional sinks.
// Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	sinks   []Sink
}

// New creates an empty ledger writing through to the given sinks.
func New(sinks ...Sink) *Ledger {
	return &Ledger{sinks: sinks}
}

// Record appends an entry. Never returns an error: the history append
// cannot fail, and sink failures are logged and swallowed so a broken
// disk cannot fail a completed interaction.
func (l *Ledger) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		if err := s.Append(e); err != nil {
			log.Printf("LEDGER: sink append failed: %v", err)
		}
	}
}

// Entries returns a snapshot of the recorded history in order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats recomputes session statistics from the full history.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{ModelUsage: make(map[string]int)}
	if len(l.entries) == 0 {
		return s
	}

	var successes int
	var scoreSum float64
	for _, e := range l.entries {
		if e.Success {
			successes++
		}
		s.TotalCost += e.Cost
		scoreSum += e.Score
		s.ModelUsage[e.Backend]++
	}

	s.TotalInteractions = len(l.entries)
	s.SuccessRate = float64(successes) / float64(len(l.entries))
	s.AverageConfidence = scoreSum / float64(len(l.entries))
	return s
}
