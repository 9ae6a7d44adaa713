// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jeranaias/modelmux/internal/adapter"
	"github.com/jeranaias/modelmux/internal/ledger"
	"github.com/jeranaias/modelmux/internal/registry"
	"github.com/jeranaias/modelmux/internal/router"
	"github.com/jeranaias/modelmux/internal/session"
)

// =============================================================================
// AGENT
// =============================================================================

// Outcome bundles everything one processed request produced.
type Outcome struct {
	// Request is the normalized routing input derived from the text.
	Request router.Request
	// Decision is the routing decision that was executed. On a retry it
	// is the second decision, the one the result belongs to.
	Decision router.Decision
	// Result is the normalized execution result.
	Result adapter.Result
	// Retried reports whether a failed first attempt was re-routed.
	Retried bool
}

// Agent wires the registry, router, adapter, and ledger into one
// pipeline. Safe for concurrent use.
type Agent struct {
	mu sync.Mutex

	reg  *registry.Registry
	rt   *router.Router
	exec *adapter.Adapter
	led  *ledger.Ledger
	sess *session.Session
}

// New creates an agent over fully constructed components.
func New(reg *registry.Registry, rt *router.Router, exec *adapter.Adapter,
	led *ledger.Ledger, sess *session.Session) *Agent {
	return &Agent{reg: reg, rt: rt, exec: exec, led: led, sess: sess}
}

// Session returns the agent's session.
func (a *Agent) Session() *session.Session {
	return a.sess
}

// Registry returns the agent's backend registry.
func (a *Agent) Registry() *registry.Registry {
	return a.reg
}

// SetWeights swaps the routing weights, e.g. after a config reload.
func (a *Agent) SetWeights(w router.Weights) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rt = router.New(a.reg, w)
}

func (a *Agent) currentRouter() *router.Router {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rt
}

// =============================================================================
// PIPELINE
// =============================================================================

// Classify derives the routing request for a piece of text without
// executing anything. langHint may be empty.
func (a *Agent) Classify(text, langHint string) router.Request {
	return router.Request{
		Task:       router.ClassifyTask(text),
		Language:   router.DetectLanguage(text, langHint),
		Complexity: router.EstimateComplexity(text),
		Budget:     a.sess.Budget(),
	}
}

// Route classifies the text and selects a backend without executing.
func (a *Agent) Route(text, langHint string) (router.Request, router.Decision, error) {
	req := a.Classify(text, langHint)
	dec, err := a.currentRouter().Route(req)
	return req, dec, err
}

// Execute runs a previously made decision and records the interaction.
// Used when the caller wants to inspect or override routing before
// executing; Process is the usual path. Cancelled executions are not
// recorded.
func (a *Agent) Execute(ctx context.Context, dec router.Decision, prompt string) (adapter.Result, error) {
	a.sess.Touch()

	res, err := a.exec.Execute(ctx, dec, prompt)
	if err != nil {
		return res, err
	}
	a.noteAuthFailure(res)

	if errors.Is(ctx.Err(), context.Canceled) {
		return res, ctx.Err()
	}

	a.record(router.Request{Task: router.ClassifyTask(prompt)}, dec, res)
	return res, nil
}

// Process runs the full pipeline for one prompt. A failed execution is
// re-routed once, excluding the failed backend; the outcome carries
// whichever attempt ran last. Interactions cancelled before completion
// are not recorded.
func (a *Agent) Process(ctx context.Context, text, langHint string) (Outcome, error) {
	a.sess.Touch()

	req := a.Classify(text, langHint)
	rt := a.currentRouter()

	dec, err := rt.Route(req)
	if err != nil {
		return Outcome{Request: req}, err
	}

	out := Outcome{Request: req, Decision: dec}
	out.Result, err = a.exec.Execute(ctx, dec, text)
	if err != nil {
		return out, err
	}
	a.noteAuthFailure(out.Result)

	// One re-route on failure, never against the backend that failed.
	// Cancellation is the caller giving up, not a backend fault.
	if !out.Result.Success && ctx.Err() == nil {
		if dec2, rerr := rt.RouteExcluding(req, map[string]bool{dec.Backend: true}); rerr == nil {
			log.Printf("AGENT: %s failed (%s), retrying on %s", dec.Backend, out.Result.Error, dec2.Backend)
			res2, eerr := a.exec.Execute(ctx, dec2, text)
			if eerr != nil {
				return out, eerr
			}
			a.noteAuthFailure(res2)
			out.Decision = dec2
			out.Result = res2
			out.Retried = true
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return out, ctx.Err()
	}

	a.record(req, out.Decision, out.Result)
	return out, nil
}

// record writes one completed interaction to the ledger.
func (a *Agent) record(req router.Request, dec router.Decision, res adapter.Result) {
	a.led.Record(ledger.Entry{
		SessionID:     a.sess.ID(),
		TaskType:      string(req.Task),
		Backend:       res.Backend,
		Success:       res.Success,
		Score:         dec.Score,
		Cost:          res.Cost,
		ExecutionTime: res.Duration,
		TokensUsed:    res.Tokens,
	})
}

// noteAuthFailure downgrades a backend whose credential was rejected.
func (a *Agent) noteAuthFailure(res adapter.Result) {
	if res.AuthFailure {
		log.Printf("AGENT: marking %s unavailable after auth failure", res.Backend)
		a.reg.MarkUnavailable(res.Backend)
	}
}

// =============================================================================
// STATS
// =============================================================================

// Stats returns the session statistics derived from the ledger.
func (a *Agent) Stats() ledger.Stats {
	return a.led.Stats()
}

// History returns the recorded interactions in order.
func (a *Agent) History() []ledger.Entry {
	return a.led.Entries()
}
