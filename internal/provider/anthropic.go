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
// ANTHROPIC MESSAGES CLIENT
// =============================================================================

// DefaultAnthropicURL is the base URL for the Anthropic API.
const DefaultAnthropicURL = "https://api.anthropic.com"

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 2000
)

// AnthropicClient calls the Anthropic messages endpoint.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	limiter *rate.Limiter
}

// NewAnthropicClient creates a client for the Anthropic messages API.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultAnthropicURL,
		limiter: newLimiter(),
	}
}

// WithBaseURL points the client at a different base URL.
func (c *AnthropicClient) WithBaseURL(url string) *AnthropicClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// IsConfigured returns true if the client has an API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Caller against POST /v1/messages.
func (c *AnthropicClient) Complete(ctx context.Context, model, prompt string) (Completion, error) {
	if !c.IsConfigured() {
		return Completion{}, fmt.Errorf("%w: anthropic", ErrNotConfigured)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, err
	}

	reqBody := anthropicRequest{
		Model:     model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
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
		var apiErr anthropicErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return Completion{}, statusError("anthropic", resp.StatusCode, apiErr.Error.Message)
	}

	var msgResp anthropicResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return Completion{}, fmt.Errorf("failed to parse response: %w", err)
	}

	// Concatenate text blocks; non-text blocks are skipped.
	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return Completion{}, &APIError{Provider: "anthropic", Status: resp.StatusCode, Message: "empty content"}
	}

	return Completion{
		Text:         sb.String(),
		InputTokens:  msgResp.Usage.InputTokens,
		OutputTokens: msgResp.Usage.OutputTokens,
	}, nil
}
