// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent orchestrates the full request pipeline: classify the
// text, route to a backend, execute, and record the interaction.
//
// The agent owns the retry policy the adapter deliberately lacks: when
// an execution fails it re-routes exactly once, excluding the backend
// that just failed, and returns whatever the second attempt produced.
// Auth failures additionally downgrade the backend's availability so
// later requests stop considering it.
package agent
