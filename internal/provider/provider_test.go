// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// =============================================================================
// OPENAI CLIENT TESTS
// =============================================================================

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4" {
			t.Errorf("model = %s, want gpt-4", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want single user message", req.Messages)
		}
		if req.Temperature != openAITemperature || req.MaxTokens != openAIMaxTokens {
			t.Errorf("generation params = %.1f/%d", req.Temperature, req.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "pong"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	c := NewOpenAIClient("sk-test").WithBaseURL(server.URL)
	comp, err := c.Complete(context.Background(), "gpt-4", "ping")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if comp.Text != "pong" {
		t.Errorf("Text = %q, want pong", comp.Text)
	}
	if comp.InputTokens != 12 || comp.OutputTokens != 3 {
		t.Errorf("tokens = %d/%d, want 12/3", comp.InputTokens, comp.OutputTokens)
	}
	if comp.TotalTokens() != 15 {
		t.Errorf("TotalTokens = %d, want 15", comp.TotalTokens())
	}
}

func TestOpenAINotConfigured(t *testing.T) {
	c := NewOpenAIClient("")
	_, err := c.Complete(context.Background(), "gpt-4", "ping")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthFailed},
		{"forbidden", http.StatusForbidden, ErrAuthFailed},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope"}}`))
			}))
			defer server.Close()

			c := NewOpenAIClient("sk-test").WithBaseURL(server.URL)
			_, err := c.Complete(context.Background(), "gpt-4", "ping")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIServerErrorIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	defer server.Close()

	c := NewOpenAIClient("sk-test").WithBaseURL(server.URL)
	_, err := c.Complete(context.Background(), "gpt-4", "ping")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Message != "overloaded" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

// =============================================================================
// ANTHROPIC CLIENT TESTS
// =============================================================================

func TestAnthropicComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Errorf("anthropic-version = %q", got)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "claude-3-haiku-20240307" || req.MaxTokens != anthropicMaxTokens {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}],
			"usage": {"input_tokens": 8, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	c := NewAnthropicClient("sk-ant-test").WithBaseURL(server.URL)
	comp, err := c.Complete(context.Background(), "claude-3-haiku-20240307", "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if comp.Text != "hello world" {
		t.Errorf("Text = %q, want concatenated text blocks", comp.Text)
	}
	if comp.InputTokens != 8 || comp.OutputTokens != 2 {
		t.Errorf("tokens = %d/%d, want 8/2", comp.InputTokens, comp.OutputTokens)
	}
}

func TestAnthropicAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	c := NewAnthropicClient("bad-key").WithBaseURL(server.URL)
	_, err := c.Complete(context.Background(), "claude-3-opus-20240229", "hi")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
}

// =============================================================================
// GEMINI CLIENT TESTS
// =============================================================================

func TestGeminiComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-pro:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "aiza-test" {
			t.Errorf("key query param = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "bonjour"}]}}]
		}`))
	}))
	defer server.Close()

	c := NewGeminiClient("aiza-test").WithBaseURL(server.URL)
	comp, err := c.Complete(context.Background(), "gemini-pro", "salut")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if comp.Text != "bonjour" {
		t.Errorf("Text = %q, want bonjour", comp.Text)
	}
	// generateContent reports no usage; the completion must say so
	// honestly rather than inventing counts.
	if comp.InputTokens != 0 || comp.OutputTokens != 0 {
		t.Errorf("tokens = %d/%d, want 0/0", comp.InputTokens, comp.OutputTokens)
	}
}

func TestGeminiEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	c := NewGeminiClient("aiza-test").WithBaseURL(server.URL)
	_, err := c.Complete(context.Background(), "gemini-pro", "salut")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("err = %v, want *APIError for empty candidates", err)
	}
}

// =============================================================================
// OLLAMA CLIENT TESTS
// =============================================================================

func TestOllamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}

		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream = true, want false")
		}
		if req.Model != "qwen2.5:7b" {
			t.Errorf("model = %s", req.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response": "local says hi",
			"done": true,
			"prompt_eval_count": 5,
			"eval_count": 4
		}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL)
	comp, err := c.Complete(context.Background(), "qwen2.5:7b", "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if comp.Text != "local says hi" {
		t.Errorf("Text = %q", comp.Text)
	}
	if comp.TotalTokens() != 9 {
		t.Errorf("TotalTokens = %d, want 9", comp.TotalTokens())
	}
}

func TestOllamaUnreachable(t *testing.T) {
	// A closed server gives a connection error, which must surface as a
	// plain error, not a panic or an empty completion.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := NewOllamaClient(server.URL)
	_, err := c.Complete(context.Background(), "qwen2.5:7b", "hi")
	if err == nil {
		t.Fatal("expected error for unreachable daemon")
	}
}

func TestCompleteHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewOpenAIClient("sk-test").WithBaseURL(server.URL)
	_, err := c.Complete(ctx, "gpt-4", "ping")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}
