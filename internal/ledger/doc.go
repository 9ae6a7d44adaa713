// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ledger records every routed interaction and derives session
// statistics from the recorded history.
//
// The ledger is append-only: entries are never updated or deleted, and
// statistics are recomputed from the entry list on every read rather
// than maintained incrementally. Recording never fails the interaction
// it describes — sink errors (JSONL mirror, SQLite store) are logged
// and swallowed.
package ledger
