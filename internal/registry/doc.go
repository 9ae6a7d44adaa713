// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry provides the backend catalog for modelmux.
//
// A backend is one addressable AI inference provider/model (hosted API
// or local model). The registry is built once at process start from
// environment and configuration inspection, and is immutable afterwards
// except for availability downgrades on authentication failure.
//
// # Key Types
//
//   - Descriptor: immutable description of one backend (tags, cost, latency)
//   - Registry: insertion-ordered catalog with Register/List/Get
//
// # Usage
//
// Build the default catalog from the environment:
//
//	reg := registry.FromEnv(cfg)
//	for _, d := range reg.List() {
//	    fmt.Println(d.Name, d.Available)
//	}
//
// Registration never performs network calls; probing is limited to
// reading environment variables and configuration. An empty registry is
// a valid (degenerate) state surfaced to callers at routing time.
package registry
