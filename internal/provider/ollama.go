// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// OLLAMA CLIENT
// =============================================================================

// DefaultOllamaURL is the default address of a local Ollama daemon.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaClient calls a local Ollama daemon's generate endpoint.
// No credential and no rate limiter: local inference is gated by the
// hardware, not a quota.
type OllamaClient struct {
	baseURL string
}

// NewOllamaClient creates a client for a local Ollama daemon.
func NewOllamaClient(baseURL string) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaClient{baseURL: strings.TrimSuffix(baseURL, "/")}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete implements Caller against POST /api/generate.
func (c *OllamaClient) Complete(ctx context.Context, model, prompt string) (Completion, error) {
	reqBody := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return Completion{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Completion{}, statusError("ollama", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return Completion{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return Completion{
		Text:         genResp.Response,
		InputTokens:  genResp.PromptEvalCount,
		OutputTokens: genResp.EvalCount,
	}, nil
}
