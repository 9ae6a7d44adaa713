// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// =============================================================================
// GEMINI CLIENT
// =============================================================================

// DefaultGeminiURL is the base URL for the Google generative language API.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the generateContent endpoint. The generative
// language API reports no token usage on this endpoint, so completions
// carry zero token counts and cost accounting treats the call as free.
type GeminiClient struct {
	apiKey  string
	baseURL string
	limiter *rate.Limiter
}

// NewGeminiClient creates a client for the Google generative language API.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultGeminiURL,
		limiter: newLimiter(),
	}
}

// WithBaseURL points the client at a different base URL.
func (c *GeminiClient) WithBaseURL(url string) *GeminiClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// IsConfigured returns true if the client has an API key.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func newGeminiRequest(prompt string) geminiRequest {
	var req geminiRequest
	req.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	req.Contents[0].Parts = make([]struct {
		Text string `json:"text"`
	}, 1)
	req.Contents[0].Parts[0].Text = prompt
	return req
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Caller against POST /models/{model}:generateContent.
func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (Completion, error) {
	if !c.IsConfigured() {
		return Completion{}, fmt.Errorf("%w: gemini", ErrNotConfigured)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, err
	}

	bodyBytes, err := json.Marshal(newGeminiRequest(prompt))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
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
		var apiErr geminiErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return Completion{}, statusError("gemini", resp.StatusCode, apiErr.Error.Message)
	}

	var genResp geminiResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return Completion{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return Completion{}, &APIError{Provider: "gemini", Status: resp.StatusCode, Message: "empty candidates"}
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	// No usage block on this endpoint; token counts stay zero.
	return Completion{Text: sb.String()}, nil
}
