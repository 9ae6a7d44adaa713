// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"

	"github.com/jeranaias/modelmux/internal/registry"
)

// =============================================================================
// TASK TYPE
// =============================================================================

// TaskType is the category of a request. The set is closed; the
// classifier is total and always returns one of these values.
type TaskType string

const (
	// TaskCoding covers code generation, debugging, and refactoring.
	TaskCoding TaskType = "coding"
	// TaskCreative covers stories, poems, and other open-ended writing.
	TaskCreative TaskType = "creative"
	// TaskAnalysis covers comparison, evaluation, and critical review.
	TaskAnalysis TaskType = "analysis"
	// TaskVision covers image and picture understanding requests.
	TaskVision TaskType = "vision"
	// TaskMultilingual covers requests about or in non-English languages.
	TaskMultilingual TaskType = "multilingual"
	// TaskTranslation covers explicit translation requests.
	TaskTranslation TaskType = "translation"
	// TaskSummarization covers condensing text.
	TaskSummarization TaskType = "summarization"
	// TaskWebSearch covers lookups that imply fresh web content.
	TaskWebSearch TaskType = "web_search"
	// TaskCalculation covers arithmetic and quantitative requests.
	TaskCalculation TaskType = "calculation"
	// TaskFileOp covers file create/read/save style requests.
	TaskFileOp TaskType = "file_op"
	// TaskGeneral is the default when nothing else matches.
	TaskGeneral TaskType = "general"
)

// String returns the task type as its wire name.
func (t TaskType) String() string {
	return string(t)
}

// preferredTags maps each task type to the capability tags that make a
// backend a good fit. This table replaces per-task branching: adding a
// task type or backend is additive, not invasive.
var preferredTags = map[TaskType]registry.TagSet{
	TaskCoding:        registry.NewTagSet(registry.TagCoding, registry.TagReasoning),
	TaskCreative:      registry.NewTagSet(registry.TagCreative, registry.TagBalanced),
	TaskAnalysis:      registry.NewTagSet(registry.TagAnalysis, registry.TagReasoning),
	TaskVision:        registry.NewTagSet(registry.TagVision, registry.TagMultimodal),
	TaskMultilingual:  registry.NewTagSet(registry.TagMultilingual),
	TaskTranslation:   registry.NewTagSet(registry.TagMultilingual),
	TaskSummarization: registry.NewTagSet(registry.TagAnalysis, registry.TagCostEffective),
	TaskWebSearch:     registry.NewTagSet(registry.TagSpeed, registry.TagGeneral),
	TaskCalculation:   registry.NewTagSet(registry.TagReasoning, registry.TagSpeed),
	TaskFileOp:        registry.NewTagSet(registry.TagSpeed, registry.TagCostEffective),
	TaskGeneral:       registry.NewTagSet(registry.TagGeneral, registry.TagBalanced),
}

// PreferredTags returns the capability tags preferred for a task type.
func PreferredTags(t TaskType) registry.TagSet {
	if tags, ok := preferredTags[t]; ok {
		return tags
	}
	return preferredTags[TaskGeneral]
}

// =============================================================================
// ROUTING REQUEST
// =============================================================================

// Request is the normalized input to a routing decision. Requests are
// ephemeral, created per call.
type Request struct {
	// Task is the classified task type.
	Task TaskType `json:"task"`
	// Language is the detected ISO language code ("en" default).
	Language string `json:"language"`
	// Complexity is a derived scalar; see EstimateComplexity.
	Complexity float64 `json:"complexity"`
	// Budget is the cost ceiling in dollars per 1K units. Backends above
	// it are penalized, not hard-excluded; a zero budget penalizes every
	// paid backend while free backends stay exempt.
	Budget float64 `json:"budget"`
}

// =============================================================================
// ROUTING DECISION
// =============================================================================

// Decision is the outcome of routing: which backend to call and why.
// Immutable once produced; attached 1:1 to the execution result it
// authorizes.
type Decision struct {
	// Backend is the chosen backend name.
	Backend string `json:"backend"`
	// Score is the numeric score the backend won with.
	Score float64 `json:"score"`
	// Reason is a human-readable justification. Diagnostic only; no
	// downstream component parses it.
	Reason string `json:"reason"`
}

// String returns a human-readable summary of the decision.
func (d Decision) String() string {
	return fmt.Sprintf("%s (score=%.1f): %s", d.Backend, d.Score, d.Reason)
}
