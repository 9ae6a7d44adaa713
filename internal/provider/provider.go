// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// SHARED HTTP TRANSPORT
// =============================================================================

const (
	// DefaultTimeout is the per-request timeout applied by the shared
	// HTTP client. The execution adapter layers its own deadline on top.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps response bodies. A provider that streams more
	// than this is misbehaving; truncation is treated as an error.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// defaultRPS is the per-client request rate applied when the caller
	// does not supply a limiter.
	defaultRPS = 5
)

// sharedHTTPClient pools connections across all provider clients.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// newLimiter returns the default per-client rate limiter.
func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(defaultRPS), defaultRPS)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the credential for the family is absent.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrAuthFailed indicates the provider rejected the credential.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a non-2xx provider response that maps to no sentinel.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error (HTTP %d)", e.Provider, e.Status)
}

// statusError maps an HTTP status to the error taxonomy.
func statusError(provider string, status int, message string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s HTTP %d: %s", ErrAuthFailed, provider, status, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: %s", ErrRateLimited, provider, message)
	default:
		return &APIError{Provider: provider, Status: status, Message: message}
	}
}

// readResponse reads a response body under the size cap. Hitting the cap
// exactly is treated as truncation and fails the call.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// CALLER INTERFACE
// =============================================================================

// Completion is the normalized result of one model invocation.
type Completion struct {
	// Text is the generated content.
	Text string
	// InputTokens is the prompt token count, 0 when the provider does
	// not report usage.
	InputTokens int
	// OutputTokens is the generated token count, 0 when unreported.
	OutputTokens int
}

// TotalTokens returns input plus output tokens.
func (c Completion) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

// Caller invokes one model on one provider. Implementations are safe
// for concurrent use.
type Caller interface {
	// Complete sends a prompt to the given model and returns the
	// normalized completion. Respects ctx cancellation and deadlines.
	Complete(ctx context.Context, model, prompt string) (Completion, error)
}
