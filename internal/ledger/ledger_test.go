// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ledger

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func entryFor(backend string, success bool, score, cost float64) Entry {
	return Entry{
		SessionID:     "s-1",
		TaskType:      "coding",
		Backend:       backend,
		Success:       success,
		Score:         score,
		Cost:          cost,
		ExecutionTime: 250 * time.Millisecond,
		TokensUsed:    100,
	}
}

func TestRecordAndEntries(t *testing.T) {
	l := New()
	l.Record(entryFor("a", true, 30, 0.01))
	l.Record(entryFor("b", false, 10, 0))

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Backend != "a" || entries[1].Backend != "b" {
		t.Errorf("order = %s, %s", entries[0].Backend, entries[1].Backend)
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("Record did not stamp the entry")
	}
}

func TestEntriesReturnsSnapshot(t *testing.T) {
	l := New()
	l.Record(entryFor("a", true, 30, 0.01))

	snap := l.Entries()
	snap[0].Backend = "mutated"

	if l.Entries()[0].Backend != "a" {
		t.Error("mutation of snapshot leaked into ledger")
	}
}

func TestStatsEmpty(t *testing.T) {
	s := New().Stats()
	if s.TotalInteractions != 0 {
		t.Errorf("TotalInteractions = %d", s.TotalInteractions)
	}
	// Empty history is zero success rate, not a division by zero.
	if s.SuccessRate != 0 || s.AverageConfidence != 0 || s.TotalCost != 0 {
		t.Errorf("empty stats = %+v", s)
	}
	if s.ModelUsage == nil {
		t.Error("ModelUsage nil, want empty map")
	}
}

func TestStatsRecompute(t *testing.T) {
	l := New()
	l.Record(entryFor("a", true, 30, 0.01))
	l.Record(entryFor("a", true, 50, 0.02))
	l.Record(entryFor("b", false, 10, 0))

	s := l.Stats()
	if s.TotalInteractions != 3 {
		t.Errorf("TotalInteractions = %d, want 3", s.TotalInteractions)
	}
	if want := 2.0 / 3.0; s.SuccessRate != want {
		t.Errorf("SuccessRate = %.4f, want %.4f", s.SuccessRate, want)
	}
	if want := 0.03; math.Abs(s.TotalCost-want) > 1e-9 {
		t.Errorf("TotalCost = %.4f, want %.4f", s.TotalCost, want)
	}
	if want := 30.0; s.AverageConfidence != want {
		t.Errorf("AverageConfidence = %.2f, want %.2f", s.AverageConfidence, want)
	}
	if s.ModelUsage["a"] != 2 || s.ModelUsage["b"] != 1 {
		t.Errorf("ModelUsage = %v", s.ModelUsage)
	}

	// Failed entries still count toward usage and confidence.
	l.Record(entryFor("b", false, 0, 0))
	if got := l.Stats().ModelUsage["b"]; got != 2 {
		t.Errorf("ModelUsage[b] = %d after failure, want 2", got)
	}
}

func TestConcurrentRecord(t *testing.T) {
	l := New()
	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				l.Record(entryFor("a", true, 30, 0.001))
				_ = l.Stats()
			}
		}()
	}
	wg.Wait()

	if got := l.Len(); got != workers*perWorker {
		t.Errorf("Len = %d, want %d", got, workers*perWorker)
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Append(e Entry) error {
	f.calls++
	return errors.New("disk full")
}

func TestFailingSinkDoesNotFailRecord(t *testing.T) {
	sink := &failingSink{}
	l := New(sink)

	l.Record(entryFor("a", true, 30, 0.01))

	if sink.calls != 1 {
		t.Errorf("sink called %d times, want 1", sink.calls)
	}
	if l.Len() != 1 {
		t.Error("entry lost because the sink failed")
	}
}
