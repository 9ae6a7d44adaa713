// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"strings"

	"github.com/jeranaias/modelmux/internal/registry"
)

// =============================================================================
// SCORING WEIGHTS
// =============================================================================

// Weights are the tunable scoring constants. They are ordinary config
// values, not hardcoded truths: operators can rebalance routing without
// a rebuild. All bonuses are additive; BudgetPenalty is subtractive.
type Weights struct {
	// TagMatch is awarded when a backend shares a capability tag with the
	// task's preferred set.
	TagMatch float64 `toml:"tag_match"`
	// Reasoning is awarded to reasoning-tagged backends on complex requests.
	Reasoning float64 `toml:"reasoning"`
	// Language is awarded to multilingual backends on non-English requests.
	Language float64 `toml:"language"`
	// SimpleCostEffective is awarded to cost-effective backends on simple
	// requests.
	SimpleCostEffective float64 `toml:"simple_cost_effective"`
	// SimpleFast is awarded to fast-latency backends on simple requests.
	SimpleFast float64 `toml:"simple_fast"`
	// ComplexHeavyweight is awarded to premium backends on complex requests.
	ComplexHeavyweight float64 `toml:"complex_heavyweight"`
	// BudgetPenalty is subtracted when a backend's declared cost exceeds
	// the request budget. Over-budget backends stay eligible.
	BudgetPenalty float64 `toml:"budget_penalty"`

	// ReasoningThreshold is the complexity above which a request counts
	// as complex.
	ReasoningThreshold float64 `toml:"reasoning_threshold"`
	// SimpleThreshold is the complexity below which a request counts as
	// simple.
	SimpleThreshold float64 `toml:"simple_threshold"`
	// HeavyweightCost is the declared cost at or above which a backend
	// counts as a premium heavyweight.
	HeavyweightCost float64 `toml:"heavyweight_cost"`
}

// DefaultWeights returns the stock scoring constants.
func DefaultWeights() Weights {
	return Weights{
		TagMatch:            30,
		Reasoning:           20,
		Language:            15,
		SimpleCostEffective: 15,
		SimpleFast:          10,
		ComplexHeavyweight:  20,
		BudgetPenalty:       20,

		ReasoningThreshold: 0.6,
		SimpleThreshold:    0.2,
		HeavyweightCost:    0.03,
	}
}

// =============================================================================
// SCORING
// =============================================================================

// Score computes the routing score for one backend against one request.
// Pure: same inputs, same score. The returned reasons list feeds the
// decision's diagnostic string.
func Score(d registry.Descriptor, req Request, w Weights) (float64, []string) {
	var score float64
	var reasons []string

	if d.Tags.Intersects(PreferredTags(req.Task)) {
		score += w.TagMatch
		reasons = append(reasons, fmt.Sprintf("tags fit %s", req.Task))
	}

	complex := req.Complexity > w.ReasoningThreshold
	simple := req.Complexity < w.SimpleThreshold

	if complex && d.Tags.Has(registry.TagReasoning) {
		score += w.Reasoning
		reasons = append(reasons, "reasoning for complex request")
	}

	if req.Language != "" && req.Language != "en" && d.Tags.Has(registry.TagMultilingual) {
		score += w.Language
		reasons = append(reasons, "multilingual for "+req.Language)
	}

	if simple {
		if d.Tags.Has(registry.TagCostEffective) {
			score += w.SimpleCostEffective
			reasons = append(reasons, "cost-effective for simple request")
		}
		if d.Latency == registry.LatencyFast {
			score += w.SimpleFast
			reasons = append(reasons, "fast for simple request")
		}
	}

	if complex && d.CostPer1K >= w.HeavyweightCost {
		score += w.ComplexHeavyweight
		reasons = append(reasons, "heavyweight for complex request")
	}

	// Free backends (cost 0) are never over budget, so a zero budget
	// degrades to penalizing every paid backend rather than dividing.
	if d.CostPer1K > req.Budget {
		score -= w.BudgetPenalty
		reasons = append(reasons, fmt.Sprintf("over budget ($%.4f > $%.4f)", d.CostPer1K, req.Budget))
	}

	return score, reasons
}

// joinReasons renders a reasons list for Decision.Reason.
func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "no scoring criteria matched"
	}
	return strings.Join(reasons, "; ")
}
