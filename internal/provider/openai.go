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

	"golang.org/x/time/rate"
)

// =============================================================================
// OPENAI-COMPATIBLE CLIENT
// =============================================================================

// DefaultOpenAIURL is the base URL for the OpenAI API. Copilot and
// self-hosted gateways speak the same protocol behind a different base.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// DefaultCopilotURL is the base URL for the GitHub Copilot gateway,
// an OpenAI-compatible endpoint with its own credential.
const DefaultCopilotURL = "https://api.githubcopilot.com"

// Generation defaults for the chat completions endpoint.
const (
	openAITemperature = 0.7
	openAIMaxTokens   = 2000
)

// OpenAIClient calls the chat completions endpoint of any
// OpenAI-compatible provider.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	limiter *rate.Limiter
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// An empty key yields a client whose calls fail with ErrNotConfigured.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultOpenAIURL,
		limiter: newLimiter(),
	}
}

// WithBaseURL points the client at a different OpenAI-compatible base.
func (c *OpenAIClient) WithBaseURL(url string) *OpenAIClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// IsConfigured returns true if the client has an API key.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Caller against POST /chat/completions.
func (c *OpenAIClient) Complete(ctx context.Context, model, prompt string) (Completion, error) {
	if !c.IsConfigured() {
		return Completion{}, fmt.Errorf("%w: openai", ErrNotConfigured)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, err
	}

	reqBody := openAIChatRequest{
		Model:       model,
		Messages:    []openAIChatMessage{{Role: "user", Content: prompt}},
		Temperature: openAITemperature,
		MaxTokens:   openAIMaxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return Completion{}, err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr openAIErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return Completion{}, statusError("openai", resp.StatusCode, apiErr.Error.Message)
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return Completion{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return Completion{}, &APIError{Provider: "openai", Status: resp.StatusCode, Message: "empty choices"}
	}

	return Completion{
		Text:         chatResp.Choices[0].Message.Content,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
	}, nil
}
