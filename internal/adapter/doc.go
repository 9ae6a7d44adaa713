// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package adapter executes routing decisions against backend providers
// and normalizes every outcome into a Result value.
//
// The adapter is the failure boundary of the pipeline: provider errors,
// timeouts, and unavailable backends all come back as Result values
// with Success=false and a diagnostic Error string. Execute returns a
// Go error only for programmer mistakes (unknown backend name, missing
// protocol client). There are no retries here; retry policy lives with
// the caller, which can re-route to a different backend.
//
// Clients are keyed by provider family, with per-backend overrides for
// backends that share a family's wire shape but carry their own
// credential and gateway (Copilot).
package adapter
