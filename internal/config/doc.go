// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates, and persists modelmux configuration.
//
// Configuration is read from ~/.modelmux/config.toml, falling back to
// defaults when the file is absent. Environment overrides are applied
// after file load. A file watcher can reload the config on change so
// weight and budget tuning takes effect without a restart.
package config
