// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifetime of one interactive run: a unique
// session ID, start time, idle tracking, and the per-session budget
// applied to routing requests.
package session
