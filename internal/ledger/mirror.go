// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// JSONL MIRROR
// =============================================================================

// mirrorRecord is the on-disk line format. A fixed shape independent of
// Entry so external consumers can parse the file without tracking
// internal struct changes.
type mirrorRecord struct {
	Timestamp     string  `json:"timestamp"`
	SessionID     string  `json:"session_id"`
	TaskType      string  `json:"task_type"`
	Backend       string  `json:"backend"`
	Success       bool    `json:"success"`
	Cost          float64 `json:"cost"`
	ExecutionTime float64 `json:"execution_time"`
	TokensUsed    int     `json:"tokens_used"`
}

// Mirror appends each entry as one JSON line to a file. Implements
// Sink.
type Mirror struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewMirror opens (or creates) the JSONL file in append mode.
func NewMirror(path string) (*Mirror, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror file: %w", err)
	}
	return &Mirror{path: path, f: f}, nil
}

// Append writes one entry as a JSON line.
func (m *Mirror) Append(e Entry) error {
	rec := mirrorRecord{
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339),
		SessionID:     e.SessionID,
		TaskType:      e.TaskType,
		Backend:       e.Backend,
		Success:       e.Success,
		Cost:          e.Cost,
		ExecutionTime: e.ExecutionTime.Seconds(),
		TokensUsed:    e.TokensUsed,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write mirror record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}
