// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
	"log"

	"github.com/jeranaias/modelmux/internal/registry"
)

// =============================================================================
// ROUTER
// =============================================================================

// ErrNoBackendAvailable is returned by Route when no available backend
// exists (after exclusions).
var ErrNoBackendAvailable = errors.New("no backend available")

// Router selects a backend for a request by scoring every available
// candidate. Routing never mutates the registry.
type Router struct {
	reg     *registry.Registry
	weights Weights
}

// New creates a router over a registry with the given scoring weights.
func New(reg *registry.Registry, w Weights) *Router {
	return &Router{reg: reg, weights: w}
}

// Weights returns the router's scoring constants.
func (rt *Router) Weights() Weights {
	return rt.weights
}

// Route scores every available backend against the request and returns
// the winner. Deterministic: ties break by lower declared cost, then by
// registration order (a candidate replaces the incumbent only on a
// strictly better score, or equal score with strictly lower cost).
func (rt *Router) Route(req Request) (Decision, error) {
	return rt.RouteExcluding(req, nil)
}

// RouteExcluding is Route with a set of backend names removed from
// consideration. Used on retry after an execution failure so the
// replacement decision cannot land on the backend that just failed.
func (rt *Router) RouteExcluding(req Request, exclude map[string]bool) (Decision, error) {
	var (
		found      bool
		best       registry.Descriptor
		bestScore  float64
		bestReason []string
	)

	for _, d := range rt.reg.List() {
		if !d.Available || exclude[d.Name] {
			continue
		}

		score, reasons := Score(d, req, rt.weights)

		better := score > bestScore ||
			(score == bestScore && d.CostPer1K < best.CostPer1K)
		if !found || better {
			found = true
			best = d
			bestScore = score
			bestReason = reasons
		}
	}

	if !found {
		return Decision{}, fmt.Errorf("%w for task %s", ErrNoBackendAvailable, req.Task)
	}

	dec := Decision{
		Backend: best.Name,
		Score:   bestScore,
		Reason:  joinReasons(bestReason),
	}
	log.Printf("ROUTING: %s task=%s complexity=%.2f lang=%s budget=%.4f",
		dec, req.Task, req.Complexity, req.Language, req.Budget)
	return dec, nil
}
