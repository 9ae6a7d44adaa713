// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router provides task classification and capability-based
// backend selection for modelmux.
//
// Routing is a pure computation over the registry: classify the request
// text into a task type, estimate complexity, detect the language, then
// score every available backend and pick the best one.
//
// # Key Types
//
//   - TaskType: closed enumeration of request categories
//   - Request: normalized routing input (task, language, complexity, budget)
//   - Weights: tunable scoring constants (config-exposed, not hardcoded truths)
//   - Decision: chosen backend with score and diagnostic reason
//
// # Determinism
//
// Given identical inputs and unchanged registry state, Route always
// selects the same backend. Ties break by higher score, then lower
// declared cost, then registration order — never randomly.
//
// # Usage
//
//	rt := router.New(reg, router.DefaultWeights())
//	req := router.Request{
//	    Task:       router.ClassifyTask(text),
//	    Language:   router.DetectLanguage(text, hint),
//	    Complexity: router.EstimateComplexity(text),
//	    Budget:     0.01,
//	}
//	decision, err := rt.Route(req)
package router
