// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/modelmux/internal/provider"
	"github.com/jeranaias/modelmux/internal/registry"
	"github.com/jeranaias/modelmux/internal/router"
)

// =============================================================================
// EXECUTION RESULT
// =============================================================================

// DefaultCallTimeout bounds a single backend invocation. Configurable
// via WithTimeout; the REPL and agent both keep the default.
const DefaultCallTimeout = 30 * time.Second

// Result is the normalized outcome of one execution. Failure is data,
// not a Go error: a Result with Success=false carries the diagnostic in
// Error and zero cost/token fields remain meaningful.
type Result struct {
	// Backend is the backend the decision selected.
	Backend string `json:"backend"`
	// Output is the generated text, empty on failure.
	Output string `json:"output"`
	// Success reports whether the invocation produced output.
	Success bool `json:"success"`
	// Error is the diagnostic message when Success is false.
	Error string `json:"error,omitempty"`
	// AuthFailure marks a credential rejection. The caller uses it to
	// downgrade the backend's availability.
	AuthFailure bool `json:"auth_failure,omitempty"`
	// Cost is the dollar cost of the call, derived from token usage and
	// the backend's declared per-1K rate.
	Cost float64 `json:"cost"`
	// Tokens is the total token usage reported by the provider, 0 when
	// the provider reports none.
	Tokens int `json:"tokens"`
	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`
}

// failure builds a failed Result.
func failure(backend, msg string, d time.Duration) Result {
	return Result{Backend: backend, Success: false, Error: msg, Duration: d}
}

// =============================================================================
// ADAPTER
// =============================================================================

// ErrNoClient indicates no protocol client is wired for a backend's
// provider family. This is a wiring bug, not a runtime failure.
var ErrNoClient = errors.New("no client for provider family")

// Adapter dispatches decisions to the protocol client matching each
// backend's family, or to a per-backend client when one is wired.
type Adapter struct {
	reg      *registry.Registry
	clients  map[registry.Family]provider.Caller
	backends map[string]provider.Caller
	timeout  time.Duration
}

// New creates an adapter over a registry with the given family clients.
func New(reg *registry.Registry, clients map[registry.Family]provider.Caller) *Adapter {
	return &Adapter{
		reg:     reg,
		clients: clients,
		timeout: DefaultCallTimeout,
	}
}

// FromEnv wires the standard protocol clients from environment
// credentials. Copilot shares the OpenAI wire shape but carries its own
// key and gateway, so it gets a dedicated client rather than the
// family one. ollamaURL may be empty for the default local address.
func FromEnv(reg *registry.Registry, getenv func(string) string, ollamaURL string) *Adapter {
	a := New(reg, map[registry.Family]provider.Caller{
		registry.FamilyOpenAI:    provider.NewOpenAIClient(getenv(registry.EnvOpenAIKey)),
		registry.FamilyAnthropic: provider.NewAnthropicClient(getenv(registry.EnvAnthropicKey)),
		registry.FamilyGemini:    provider.NewGeminiClient(getenv(registry.EnvGoogleKey)),
		registry.FamilyOllama:    provider.NewOllamaClient(ollamaURL),
	})
	if key := getenv(registry.EnvCopilotKey); key != "" {
		a.WithClient("copilot", provider.NewOpenAIClient(key).WithBaseURL(provider.DefaultCopilotURL))
	}
	return a
}

// WithTimeout sets the per-call timeout.
func (a *Adapter) WithTimeout(d time.Duration) *Adapter {
	a.timeout = d
	return a
}

// WithClient wires a dedicated client for one backend, overriding the
// family client. Backends with their own credential or gateway use this.
func (a *Adapter) WithClient(backend string, c provider.Caller) *Adapter {
	if a.backends == nil {
		a.backends = make(map[string]provider.Caller)
	}
	a.backends[backend] = c
	return a
}

// Execute invokes the backend a decision selected and returns the
// normalized result. The returned error is non-nil only for unknown
// backend names or missing protocol clients; provider failures and
// timeouts come back inside the Result.
func (a *Adapter) Execute(ctx context.Context, dec router.Decision, prompt string) (Result, error) {
	d, err := a.reg.Get(dec.Backend)
	if err != nil {
		return Result{}, fmt.Errorf("execute: %w", err)
	}

	client, ok := a.backends[d.Name]
	if !ok {
		client, ok = a.clients[d.Family]
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNoClient, d.Family)
	}

	// Fail fast on backends known to be unavailable; no network call.
	// Routing filters these out, so landing here means the router and
	// registry disagree about availability.
	if !d.Available {
		log.Printf("EXECUTE: %s selected while unavailable, router/registry desync", d.Name)
		return failure(d.Name, "backend unavailable", 0), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	comp, err := client.Complete(callCtx, d.Model, prompt)
	elapsed := time.Since(start)

	if err != nil {
		msg := err.Error()
		// The per-call deadline expiring is reported as a plain timeout;
		// caller-initiated cancellation keeps its own message.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			msg = "timeout"
		}
		log.Printf("EXECUTE: %s failed after %v: %v", d.Name, elapsed, err)
		res := failure(d.Name, msg, elapsed)
		res.AuthFailure = errors.Is(err, provider.ErrAuthFailed)
		return res, nil
	}

	tokens := comp.TotalTokens()
	cost := float64(tokens) * d.CostPer1K / 1000

	log.Printf("EXECUTE: %s ok in %v (tokens=%d cost=$%.6f)", d.Name, elapsed, tokens, cost)
	return Result{
		Backend:  d.Name,
		Output:   comp.Text,
		Success:  true,
		Cost:     cost,
		Tokens:   tokens,
		Duration: elapsed,
	}, nil
}
