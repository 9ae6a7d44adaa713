// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// modelmux routes prompts across heterogeneous LLM backends: it
// classifies each request, scores the registered backends, executes on
// the winner, and keeps a ledger of every interaction.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/modelmux/internal/adapter"
	"github.com/jeranaias/modelmux/internal/agent"
	"github.com/jeranaias/modelmux/internal/config"
	"github.com/jeranaias/modelmux/internal/ledger"
	"github.com/jeranaias/modelmux/internal/provider"
	"github.com/jeranaias/modelmux/internal/registry"
	"github.com/jeranaias/modelmux/internal/router"
	"github.com/jeranaias/modelmux/internal/session"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	cyan    = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	purple  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	amber   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	rose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	promptStyle  = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	welcomeStyle = lipgloss.NewStyle().Foreground(purple).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(cyan)
	okStyle      = lipgloss.NewStyle().Foreground(emerald)
	warnStyle    = lipgloss.NewStyle().Foreground(amber)
	errorStyle   = lipgloss.NewStyle().Foreground(rose).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(cyan).Bold(true)
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders model output for terminal display.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content, falling back to the raw
// text on any failure.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// STARTUP
// =============================================================================

func main() {
	// Routing diagnostics go to a log file, not the terminal.
	if dir, err := config.ConfigDir(); err == nil {
		_ = os.MkdirAll(dir, 0755)
		if f, err := os.OpenFile(filepath.Join(dir, "modelmux.log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			log.SetOutput(f)
			defer f.Close()
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	reg := registry.FromEnv()
	a := buildAgent(cfg, reg)

	// Hot-reload weight and budget tuning from the config file.
	if path, err := config.ConfigPath(); err == nil {
		if w, err := config.NewWatcher(path, func(c *config.Config) {
			a.SetWeights(c.Routing.Weights)
			a.Session().SetBudget(c.Routing.DefaultBudget)
		}); err == nil {
			if err := w.Watch(); err == nil {
				defer w.Close()
			}
		}
	}

	return repl(a)
}

// buildAgent assembles the pipeline from configuration and environment.
func buildAgent(cfg *config.Config, reg *registry.Registry) *agent.Agent {
	openai := provider.NewOpenAIClient(os.Getenv(registry.EnvOpenAIKey))
	if cfg.Providers.OpenAIURL != "" {
		openai.WithBaseURL(cfg.Providers.OpenAIURL)
	}
	anthropic := provider.NewAnthropicClient(os.Getenv(registry.EnvAnthropicKey))
	if cfg.Providers.AnthropicURL != "" {
		anthropic.WithBaseURL(cfg.Providers.AnthropicURL)
	}
	gemini := provider.NewGeminiClient(os.Getenv(registry.EnvGoogleKey))
	if cfg.Providers.GeminiURL != "" {
		gemini.WithBaseURL(cfg.Providers.GeminiURL)
	}

	exec := adapter.New(reg, map[registry.Family]provider.Caller{
		registry.FamilyOpenAI:    openai,
		registry.FamilyAnthropic: anthropic,
		registry.FamilyGemini:    gemini,
		registry.FamilyOllama:    provider.NewOllamaClient(cfg.Local.OllamaURL),
	}).WithTimeout(cfg.Providers.Timeout())

	// Copilot speaks the OpenAI protocol but has its own credential and
	// gateway, so it never rides the OpenAI family client.
	if key := os.Getenv(registry.EnvCopilotKey); key != "" {
		exec.WithClient("copilot", provider.NewOpenAIClient(key).WithBaseURL(provider.DefaultCopilotURL))
	}

	var sinks []ledger.Sink
	if cfg.Ledger.Enabled {
		if m, err := ledger.NewMirror(cfg.Ledger.MirrorPath); err == nil {
			sinks = append(sinks, m)
		} else {
			log.Printf("MAIN: history mirror disabled: %v", err)
		}
		if s, err := ledger.OpenStore(cfg.Ledger.DatabasePath); err == nil {
			sinks = append(sinks, s)
		} else {
			log.Printf("MAIN: history store disabled: %v", err)
		}
	}

	rt := router.New(reg, cfg.Routing.Weights)
	sess := session.New(cfg.Routing.DefaultBudget)
	return agent.New(reg, rt, exec, ledger.New(sinks...), sess)
}

// =============================================================================
// REPL
// =============================================================================

func repl(a *agent.Agent) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "history")
		if f, err := os.Open(historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	defer saveHistory(line, historyFile)

	printWelcome(a)

	// Ctrl+C during execution cancels the in-flight request only. The
	// cancel func is shared with the signal goroutine, so guard it.
	var (
		cancelMu      sync.Mutex
		cancelCurrent context.CancelFunc
	)
	setCancel := func(c context.CancelFunc) {
		cancelMu.Lock()
		cancelCurrent = c
		cancelMu.Unlock()
	}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigChan {
			cancelMu.Lock()
			cancel := cancelCurrent
			cancelMu.Unlock()
			if cancel != nil {
				cancel()
				fmt.Fprintln(os.Stderr, "\n"+warnStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := line.Prompt(promptStyle.Render("mux> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF both end the session.
			fmt.Println()
			printExitSummary(a)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(a, input); quit {
				printExitSummary(a)
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(a)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		setCancel(cancel)
		processPrompt(ctx, a, input)
		setCancel(nil)
		cancel()
	}
}

func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

// processPrompt runs one prompt through the agent and prints the result.
func processPrompt(ctx context.Context, a *agent.Agent, input string) {
	out, err := a.Process(ctx, input, "")
	if err != nil {
		if ctx.Err() != nil {
			return // cancellation already announced
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return
	}

	routeNote := fmt.Sprintf("[%s -> %s, score %.0f]", out.Request.Task, out.Decision.Backend, out.Decision.Score)
	if out.Retried {
		routeNote += " (retried)"
	}
	fmt.Println(infoStyle.Render(routeNote))

	if !out.Result.Success {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("[Failed]"), out.Result.Error)
		return
	}

	fmt.Print(renderMarkdown(out.Result.Output))
	fmt.Println(okStyle.Render(fmt.Sprintf("(%d tokens, $%.6f, %v)",
		out.Result.Tokens, out.Result.Cost, out.Result.Duration.Round(10*time.Millisecond))))
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand executes a slash command. Returns true when the REPL
// should exit.
func handleCommand(a *agent.Agent, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		printHelp()
	case "/stats":
		printStats(a)
	case "/backends":
		printBackends(a)
	case "/history":
		printHistory(a)
	case "/budget":
		handleBudget(a, fields[1:])
	default:
		fmt.Fprintf(os.Stderr, "%s unknown command %s (try /help)\n",
			warnStyle.Render("[?]"), fields[0])
	}
	return false
}

func handleBudget(a *agent.Agent, args []string) {
	if len(args) == 0 {
		b := a.Session().Budget()
		if b == 0 {
			fmt.Println(infoStyle.Render("budget: $0 per 1K tokens (all paid backends penalized)"))
		} else {
			fmt.Println(infoStyle.Render(fmt.Sprintf("budget: $%.4f per 1K tokens", b)))
		}
		return
	}
	b, err := strconv.ParseFloat(args[0], 64)
	if err != nil || b < 0 {
		fmt.Fprintf(os.Stderr, "%s usage: /budget [dollars-per-1k]\n", warnStyle.Render("[?]"))
		return
	}
	a.Session().SetBudget(b)
	fmt.Println(okStyle.Render(fmt.Sprintf("budget set to $%.4f per 1K tokens", b)))
}

// =============================================================================
// OUTPUT
// =============================================================================

func printWelcome(a *agent.Agent) {
	fmt.Println(welcomeStyle.Render("modelmux") + infoStyle.Render(" - multi-backend LLM router"))

	avail := a.Registry().Available()
	names := make([]string, len(avail))
	for i, d := range avail {
		names[i] = d.Name
	}
	fmt.Printf("%s %d of %d backends available: %s\n",
		infoStyle.Render("*"), len(avail), a.Registry().Len(), strings.Join(names, ", "))
	fmt.Println(infoStyle.Render("type a prompt, or /help for commands"))
	fmt.Println()
}

func printHelp() {
	fmt.Println(headerStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/stats", "session statistics"},
		{"/backends", "registered backends and availability"},
		{"/history", "recorded interactions"},
		{"/budget [n]", "show or set the per-request budget"},
		{"/help", "this help"},
		{"/quit", "exit"},
	} {
		fmt.Printf("  %-14s %s\n", okStyle.Render(row[0]), row[1])
	}
}

func printStats(a *agent.Agent) {
	s := a.Stats()
	fmt.Println(headerStyle.Render("Session Stats"))
	fmt.Printf("  session:       %s\n", a.Session().ID())
	fmt.Printf("  uptime:        %v\n", a.Session().Duration().Round(time.Second))
	fmt.Printf("  interactions:  %d\n", s.TotalInteractions)
	fmt.Printf("  success rate:  %.0f%%\n", s.SuccessRate*100)
	fmt.Printf("  total cost:    $%.6f\n", s.TotalCost)
	fmt.Printf("  avg score:     %.1f\n", s.AverageConfidence)

	if len(s.ModelUsage) > 0 {
		fmt.Println("  backend usage:")
		names := make([]string, 0, len(s.ModelUsage))
		for name := range s.ModelUsage {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("    %-20s %d\n", name, s.ModelUsage[name])
		}
	}
}

func printBackends(a *agent.Agent) {
	fmt.Println(headerStyle.Render("Backends"))
	for _, d := range a.Registry().List() {
		status := okStyle.Render("available")
		if !d.Available {
			status = warnStyle.Render("unavailable")
		}
		tags := make([]string, 0, len(d.Tags))
		for t := range d.Tags {
			tags = append(tags, string(t))
		}
		sort.Strings(tags)
		fmt.Printf("  %-18s %-11s $%.4f/1K  %-6s [%s] %s\n",
			d.Name, d.Family, d.CostPer1K, d.Latency, strings.Join(tags, " "), status)
	}
}

func printHistory(a *agent.Agent) {
	entries := a.History()
	if len(entries) == 0 {
		fmt.Println(infoStyle.Render("no interactions yet"))
		return
	}
	fmt.Println(headerStyle.Render("History"))
	for _, e := range entries {
		mark := okStyle.Render("ok")
		if !e.Success {
			mark = errorStyle.Render("fail")
		}
		fmt.Printf("  %s  %-14s %-18s %-4s $%.6f %v\n",
			e.Timestamp.Format("15:04:05"), e.TaskType, e.Backend, mark,
			e.Cost, e.ExecutionTime.Round(time.Millisecond))
	}
}

func printExitSummary(a *agent.Agent) {
	s := a.Stats()
	if s.TotalInteractions == 0 {
		fmt.Println(infoStyle.Render("goodbye"))
		return
	}
	fmt.Println(headerStyle.Render("Session Summary"))
	fmt.Printf("  %d interactions, %.0f%% success, $%.6f total\n",
		s.TotalInteractions, s.SuccessRate*100, s.TotalCost)
}
