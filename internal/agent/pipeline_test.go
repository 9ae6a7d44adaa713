// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/modelmux/internal/adapter"
	"github.com/jeranaias/modelmux/internal/ledger"
	"github.com/jeranaias/modelmux/internal/provider"
	"github.com/jeranaias/modelmux/internal/registry"
	"github.com/jeranaias/modelmux/internal/router"
	"github.com/jeranaias/modelmux/internal/session"
)

// TestPipelineEndToEnd drives the whole stack against a fake
// OpenAI-compatible server: env-probed registry, real protocol client,
// routing, execution, and persisted history.
func TestPipelineEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "func main() {}"}}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 80, "total_tokens": 100}
		}`))
	}))
	defer server.Close()

	reg := registry.FromEnvFunc(func(k string) string {
		if k == registry.EnvOpenAIKey {
			return "sk-test"
		}
		return ""
	})

	openai := provider.NewOpenAIClient("sk-test").WithBaseURL(server.URL)
	exec := adapter.New(reg, map[registry.Family]provider.Caller{
		registry.FamilyOpenAI: openai,
	})

	store, err := ledger.OpenStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	a := New(reg,
		router.New(reg, router.DefaultWeights()),
		exec,
		ledger.New(store),
		session.New(0.05))

	out, err := a.Process(context.Background(), "write a function that reverses a string", "")
	require.NoError(t, err)
	require.True(t, out.Result.Success, "execution failed: %s", out.Result.Error)
	require.Equal(t, router.TaskCoding, out.Request.Task)
	require.Equal(t, "func main() {}", out.Result.Output)
	require.Equal(t, 100, out.Result.Tokens)

	// The OpenAI family has three credentialed backends; the router must
	// land on one of them, never on the unavailable Anthropic/Gemini
	// entries or the clientless local backend.
	d, err := reg.Get(out.Decision.Backend)
	require.NoError(t, err)
	require.Equal(t, registry.FamilyOpenAI, d.Family)

	// History reached the SQLite store, not just memory.
	persisted, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, out.Result.Backend, persisted[0].Backend)
	require.Equal(t, a.Session().ID(), persisted[0].SessionID)
	require.InDelta(t, out.Result.Cost, persisted[0].Cost, 1e-9)

	stats := a.Stats()
	require.Equal(t, 1, stats.TotalInteractions)
	require.Equal(t, 1.0, stats.SuccessRate)
	require.Greater(t, stats.TotalCost, 0.0)
}
