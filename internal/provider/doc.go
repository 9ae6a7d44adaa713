// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the wire clients for each backend
// protocol family: OpenAI-compatible chat completions, the Anthropic
// messages API, the Google generative language API, and local Ollama.
//
// Every client satisfies the Caller interface and normalizes its
// provider's response shape into a Completion (text plus token usage).
// Clients return errors; they never classify them as routing outcomes —
// that is the execution adapter's job.
//
// # Error Taxonomy
//
//   - ErrNotConfigured: the credential for the family is absent
//   - ErrAuthFailed: the provider rejected the credential (HTTP 401/403)
//   - ErrRateLimited: the provider throttled the request (HTTP 429)
//   - APIError: any other non-2xx response, with status and message
//
// All clients share one pooled HTTP client and cap response bodies at
// MaxResponseSize.
package provider
