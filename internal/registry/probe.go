// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"log"
	"os"
)

// =============================================================================
// ENVIRONMENT PROBING
// =============================================================================

// Credential environment variables inspected at startup. Probing reads
// the environment only; no network calls are made during registration.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGoogleKey    = "GOOGLE_API_KEY"
	EnvCopilotKey   = "COPILOT_API_KEY"
)

// DefaultOllamaModel is the local model registered when Ollama is
// enabled. Local inference is free and always "available"; whether the
// daemon is actually up surfaces as an execution failure, not a
// registration failure.
const DefaultOllamaModel = "qwen2.5:7b"

// FromEnv builds the default backend catalog by probing credential
// environment variables. Backends whose credential is absent are
// registered with Available=false so operators can see what is missing;
// a completely empty environment yields a catalog with only the local
// backend.
func FromEnv() *Registry {
	return FromEnvFunc(os.Getenv)
}

// FromEnvFunc is FromEnv with an injectable environment lookup.
func FromEnvFunc(getenv func(string) string) *Registry {
	r := New()

	hasOpenAI := getenv(EnvOpenAIKey) != ""
	hasAnthropic := getenv(EnvAnthropicKey) != ""
	hasGoogle := getenv(EnvGoogleKey) != ""
	hasCopilot := getenv(EnvCopilotKey) != ""

	// Catalog order is deliberate: it is the registration-order
	// tie-break of last resort, so cheaper general-purpose backends
	// come before expensive specialists within each provider block.
	catalog := []struct {
		d         Descriptor
		available bool
	}{
		{Descriptor{
			Name:      "gpt-3.5-turbo",
			Family:    FamilyOpenAI,
			Model:     "gpt-3.5-turbo",
			Tags:      NewTagSet(TagSpeed, TagCostEffective, TagGeneral),
			CostPer1K: 0.002,
			Latency:   LatencyFast,
		}, hasOpenAI},
		{Descriptor{
			Name:      "gpt-4-turbo",
			Family:    FamilyOpenAI,
			Model:     "gpt-4-turbo-preview",
			Tags:      NewTagSet(TagReasoning, TagCoding, TagAnalysis, TagSpeed),
			CostPer1K: 0.01,
			Latency:   LatencyFast,
		}, hasOpenAI},
		{Descriptor{
			Name:      "gpt-4",
			Family:    FamilyOpenAI,
			Model:     "gpt-4",
			Tags:      NewTagSet(TagReasoning, TagCoding, TagAnalysis),
			CostPer1K: 0.03,
			Latency:   LatencyMedium,
		}, hasOpenAI},
		{Descriptor{
			Name:      "claude-3-haiku",
			Family:    FamilyAnthropic,
			Model:     "claude-3-haiku-20240307",
			Tags:      NewTagSet(TagSpeed, TagCostEffective),
			CostPer1K: 0.0025,
			Latency:   LatencyFast,
		}, hasAnthropic},
		{Descriptor{
			Name:      "claude-3-sonnet",
			Family:    FamilyAnthropic,
			Model:     "claude-3-sonnet-20240229",
			Tags:      NewTagSet(TagBalanced, TagCoding, TagAnalysis),
			CostPer1K: 0.015,
			Latency:   LatencyMedium,
		}, hasAnthropic},
		{Descriptor{
			Name:      "claude-3-opus",
			Family:    FamilyAnthropic,
			Model:     "claude-3-opus-20240229",
			Tags:      NewTagSet(TagCreative, TagAnalysis, TagSafety, TagReasoning),
			CostPer1K: 0.075,
			Latency:   LatencySlow,
		}, hasAnthropic},
		{Descriptor{
			Name:      "gemini-pro",
			Family:    FamilyGemini,
			Model:     "gemini-pro",
			Tags:      NewTagSet(TagMultimodal, TagReasoning, TagMultilingual),
			CostPer1K: 0.0005,
			Latency:   LatencyMedium,
		}, hasGoogle},
		{Descriptor{
			Name:      "gemini-pro-vision",
			Family:    FamilyGemini,
			Model:     "gemini-pro-vision",
			Tags:      NewTagSet(TagVision, TagMultimodal, TagAnalysis),
			CostPer1K: 0.0025,
			Latency:   LatencyMedium,
		}, hasGoogle},
		{Descriptor{
			Name:      "copilot",
			Family:    FamilyOpenAI,
			Model:     "gpt-4",
			Tags:      NewTagSet(TagCoding, TagGeneral),
			CostPer1K: 0.02,
			Latency:   LatencyMedium,
		}, hasCopilot},
		{Descriptor{
			Name:      "local",
			Family:    FamilyOllama,
			Model:     DefaultOllamaModel,
			Tags:      NewTagSet(TagGeneral, TagCostEffective, TagSpeed),
			CostPer1K: 0,
			Latency:   LatencyFast,
		}, true},
	}

	for _, entry := range catalog {
		d := entry.d
		d.Available = entry.available
		if err := r.Register(d); err != nil {
			// Malformed catalog entries lose that one backend only.
			log.Printf("REGISTRY: skipping %s: %v", d.Name, err)
		}
	}

	return r
}
