// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/modelmux/internal/adapter"
	"github.com/jeranaias/modelmux/internal/ledger"
	"github.com/jeranaias/modelmux/internal/provider"
	"github.com/jeranaias/modelmux/internal/registry"
	"github.com/jeranaias/modelmux/internal/router"
	"github.com/jeranaias/modelmux/internal/session"
)

// scriptedCaller returns canned responses per backend model.
type scriptedCaller struct {
	byModel map[string]struct {
		comp provider.Completion
		err  error
	}
	calls []string
}

func (s *scriptedCaller) Complete(ctx context.Context, model, prompt string) (provider.Completion, error) {
	s.calls = append(s.calls, model)
	r, ok := s.byModel[model]
	if !ok {
		return provider.Completion{Text: "ok", InputTokens: 10, OutputTokens: 10}, nil
	}
	return r.comp, r.err
}

func (s *scriptedCaller) fail(model string, err error) {
	if s.byModel == nil {
		s.byModel = make(map[string]struct {
			comp provider.Completion
			err  error
		})
	}
	s.byModel[model] = struct {
		comp provider.Completion
		err  error
	}{err: err}
}

func testAgent(t *testing.T, caller provider.Caller, budget float64) *Agent {
	t.Helper()
	reg := registry.New()
	backends := []registry.Descriptor{
		{Name: "coder", Family: registry.FamilyOpenAI, Model: "coder-model",
			Tags:      registry.NewTagSet(registry.TagCoding, registry.TagReasoning),
			CostPer1K: 0.01, Latency: registry.LatencyMedium, Available: true},
		{Name: "backup", Family: registry.FamilyOpenAI, Model: "backup-model",
			Tags:      registry.NewTagSet(registry.TagCoding),
			CostPer1K: 0.02, Latency: registry.LatencyMedium, Available: true},
		{Name: "local", Family: registry.FamilyOpenAI, Model: "local-model",
			Tags:      registry.NewTagSet(registry.TagGeneral, registry.TagCostEffective),
			CostPer1K: 0, Latency: registry.LatencyFast, Available: true},
	}
	for _, d := range backends {
		if err := reg.Register(d); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	rt := router.New(reg, router.DefaultWeights())
	exec := adapter.New(reg, map[registry.Family]provider.Caller{registry.FamilyOpenAI: caller})
	return New(reg, rt, exec, ledger.New(), session.New(budget))
}

func TestProcessSuccess(t *testing.T) {
	caller := &scriptedCaller{}
	a := testAgent(t, caller, 0.05)

	out, err := a.Process(context.Background(), "write a function to parse dates", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Request.Task != router.TaskCoding {
		t.Errorf("Task = %s, want coding", out.Request.Task)
	}
	if out.Decision.Backend != "coder" {
		t.Errorf("Backend = %s, want coder", out.Decision.Backend)
	}
	if !out.Result.Success || out.Retried {
		t.Errorf("outcome = %+v", out)
	}

	stats := a.Stats()
	if stats.TotalInteractions != 1 || stats.SuccessRate != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ModelUsage["coder"] != 1 {
		t.Errorf("ModelUsage = %v", stats.ModelUsage)
	}
}

func TestProcessRetriesOnFailure(t *testing.T) {
	caller := &scriptedCaller{}
	caller.fail("coder-model", errors.New("upstream down"))
	a := testAgent(t, caller, 0.05)

	out, err := a.Process(context.Background(), "debug this program", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.Retried {
		t.Fatal("failed attempt was not retried")
	}
	if out.Decision.Backend == "coder" {
		t.Error("retry landed on the failed backend")
	}
	if !out.Result.Success {
		t.Errorf("retry result = %+v", out.Result)
	}
	if len(caller.calls) != 2 {
		t.Errorf("provider calls = %v, want exactly 2", caller.calls)
	}

	// The ledger records the attempt that actually produced the result.
	entries := a.History()
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].Backend != out.Result.Backend || !entries[0].Success {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestProcessRetriesOnlyOnce(t *testing.T) {
	caller := &scriptedCaller{}
	caller.fail("coder-model", errors.New("down"))
	caller.fail("backup-model", errors.New("also down"))
	caller.fail("local-model", errors.New("everything is down"))
	a := testAgent(t, caller, 0.05)

	out, err := a.Process(context.Background(), "debug this program", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Result.Success {
		t.Error("Success = true with every backend down")
	}
	if len(caller.calls) != 2 {
		t.Errorf("provider calls = %v, want 2 (one attempt, one retry)", caller.calls)
	}

	// Failure is still history.
	entries := a.History()
	if len(entries) != 1 || entries[0].Success {
		t.Errorf("entries = %+v", entries)
	}
}

func TestProcessAuthFailureDowngradesBackend(t *testing.T) {
	caller := &scriptedCaller{}
	caller.fail("coder-model", provider.ErrAuthFailed)
	a := testAgent(t, caller, 0.05)

	out, err := a.Process(context.Background(), "refactor this code", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.Retried || !out.Result.Success {
		t.Errorf("outcome = %+v", out)
	}

	d, err := a.Registry().Get("coder")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Available {
		t.Error("coder still available after auth failure")
	}

	// Subsequent routing no longer considers the downgraded backend.
	_, dec, err := a.Route("refactor this code", "")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Backend == "coder" {
		t.Error("downgraded backend selected again")
	}
}

func TestProcessCancelledNotRecorded(t *testing.T) {
	caller := &scriptedCaller{}
	caller.fail("coder-model", context.Canceled)
	a := testAgent(t, caller, 0.05)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Process(ctx, "debug this program", "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if got := len(a.History()); got != 0 {
		t.Errorf("cancelled interaction recorded, entries = %d", got)
	}
}

func TestProcessNoBackends(t *testing.T) {
	reg := registry.New()
	rt := router.New(reg, router.DefaultWeights())
	exec := adapter.New(reg, map[registry.Family]provider.Caller{})
	a := New(reg, rt, exec, ledger.New(), session.New(0))

	_, err := a.Process(context.Background(), "hello", "")
	if !errors.Is(err, router.ErrNoBackendAvailable) {
		t.Errorf("err = %v, want ErrNoBackendAvailable", err)
	}
	if len(a.History()) != 0 {
		t.Error("unroutable request recorded")
	}
}

func TestProcessBudgetFromSession(t *testing.T) {
	caller := &scriptedCaller{}
	a := testAgent(t, caller, 0.001)

	req := a.Classify("write a function", "")
	if req.Budget != 0.001 {
		t.Errorf("Budget = %f, want session budget", req.Budget)
	}

	a.Session().SetBudget(0.05)
	if got := a.Classify("write a function", "").Budget; got != 0.05 {
		t.Errorf("Budget = %f after update, want 0.05", got)
	}
}

func TestSetWeightsTakesEffect(t *testing.T) {
	caller := &scriptedCaller{}
	a := testAgent(t, caller, 0)

	// Zeroing the tag-match bonus while keeping the simple-task bonuses
	// flips a simple coding request from "coder" to the cheap backend.
	w := router.DefaultWeights()
	w.TagMatch = 0
	a.SetWeights(w)

	_, dec, err := a.Route("fix bug", "")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.Backend != "local" {
		t.Errorf("Backend = %s with zeroed tag match, want local", dec.Backend)
	}
}

func TestExecuteRecordsDecision(t *testing.T) {
	caller := &scriptedCaller{}
	a := testAgent(t, caller, 0)

	// Route manually, then execute the inspected decision.
	_, dec, err := a.Route("write a quicksort function", "")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	res, err := a.Execute(context.Background(), dec, "write a quicksort function")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	entries := a.History()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Backend != dec.Backend || entries[0].Score != dec.Score {
		t.Errorf("entry = %+v, decision = %+v", entries[0], dec)
	}
	if entries[0].TaskType != string(router.TaskCoding) {
		t.Errorf("TaskType = %s, want coding", entries[0].TaskType)
	}
}

func TestProcessStampsLedgerTimestamps(t *testing.T) {
	caller := &scriptedCaller{}
	a := testAgent(t, caller, 0)

	before := time.Now()
	if _, err := a.Process(context.Background(), "hello there", ""); err != nil {
		t.Fatalf("Process: %v", err)
	}

	entries := a.History()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Timestamp.Before(before) {
		t.Errorf("Timestamp = %v, before test start", entries[0].Timestamp)
	}
	if entries[0].SessionID != a.Session().ID() {
		t.Errorf("SessionID = %s", entries[0].SessionID)
	}
}
