// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"

	"golang.org/x/text/language"
)

// =============================================================================
// TASK CLASSIFICATION
// =============================================================================

// taskRule is one priority-ordered classification rule: the first rule
// whose keyword appears in the lower-cased input wins.
type taskRule struct {
	task     TaskType
	keywords []string
}

// taskRules is evaluated top to bottom. More specific intents (vision,
// translation) come before broad ones (coding, analysis) so that
// "translate this code comment" classifies as translation, matching the
// first-match-wins contract.
var taskRules = []taskRule{
	{TaskVision, []string{"image", "picture", "photo", "screenshot", "diagram"}},
	{TaskTranslation, []string{"translate", "translation"}},
	{TaskSummarization, []string{"summarize", "summarise", "summary", "tl;dr"}},
	{TaskCalculation, []string{"calculate", "compute", "solve", "equation", "how many", "how much"}},
	{TaskFileOp, []string{"create file", "open file", "save file", "read file", "delete file"}},
	{TaskWebSearch, []string{"search", "look up", "google", "latest news", "find online"}},
	{TaskCoding, []string{"code", "program", "function", "script", "debug", "bug", "refactor", "compile"}},
	{TaskCreative, []string{"story", "poem", "creative", "imagine", "fiction", "lyrics"}},
	{TaskAnalysis, []string{"analyze", "analyse", "compare", "evaluate", "pros and cons", "review"}},
	{TaskMultilingual, []string{"spanish", "french", "german", "japanese", "chinese", "in another language"}},
}

// ClassifyTask maps raw text to a task type. Pure and total: it never
// fails and always returns a category, defaulting to TaskGeneral.
func ClassifyTask(text string) TaskType {
	q := strings.ToLower(text)

	for _, rule := range taskRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.task
			}
		}
	}
	return TaskGeneral
}

// =============================================================================
// COMPLEXITY ESTIMATION
// =============================================================================

// complexityScale is the word count at which a request is considered
// maximally complex.
const complexityScale = 100.0

// EstimateComplexity derives a complexity scalar in [0, 1] from the
// request text. Word count drives the base estimate; reasoning-style
// phrasing raises it, since short "why"/"explain" questions still need
// capable models.
func EstimateComplexity(text string) float64 {
	words := len(strings.Fields(text))
	c := float64(words) / complexityScale

	q := strings.ToLower(text)
	for _, kw := range []string{"explain", "why", "architect", "design", "trade-off", "prove", "step by step"} {
		if strings.Contains(q, kw) {
			c += 0.3
			break
		}
	}

	if c > 1 {
		c = 1
	}
	return c
}

// =============================================================================
// LANGUAGE DETECTION
// =============================================================================

// langMarkers maps ISO codes to high-frequency function words used for
// best-effort detection. Deliberately small: detection only has to be
// good enough to trigger the multilingual scoring bonus.
var langMarkers = map[string][]string{
	"es": {" el ", " la ", " los ", " las ", " qué ", " cómo ", " por favor", " hola"},
	"fr": {" le ", " la ", " les ", " est ", " pourquoi ", " comment ", " bonjour"},
	"de": {" der ", " die ", " das ", " und ", " nicht ", " warum ", " hallo"},
	"it": {" il ", " lo ", " gli ", " perché ", " come ", " ciao"},
	"pt": {" o ", " os ", " não ", " por que ", " olá"},
}

// DetectLanguage returns the ISO language code for the request text.
// An explicit hint wins when it parses as a valid BCP 47 tag; otherwise
// a marker-word scan runs over the text. Best effort by contract: any
// failure falls back to "en" and detection never blocks the call.
func DetectLanguage(text, hint string) string {
	if hint != "" {
		if tag, err := language.Parse(hint); err == nil {
			base, conf := tag.Base()
			if conf != language.No {
				return base.String()
			}
		}
	}

	// Pad so word-boundary markers can match at the edges.
	q := " " + strings.ToLower(text) + " "

	bestLang := "en"
	bestHits := 0
	// Fixed iteration order keeps detection deterministic.
	for _, code := range []string{"es", "fr", "de", "it", "pt"} {
		hits := 0
		for _, marker := range langMarkers[code] {
			if strings.Contains(q, marker) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestLang = code
		}
	}

	// A single marker is too weak; require two before overriding English.
	if bestHits < 2 {
		return "en"
	}
	return bestLang
}
