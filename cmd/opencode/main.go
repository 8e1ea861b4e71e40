// Package main provides the CLI entry point for the opencode coding agent.
//
// opencode connects your terminal to LLM providers (OpenAI, Anthropic,
// GitHub Copilot) with tool execution: shell commands, file reads and
// edits, search, and more.
//
// # Basic Usage
//
// Run a one-shot prompt:
//
//	opencode run "explain this repository"
//
// Start an interactive session:
//
//	opencode run
//
// Authenticate with GitHub Copilot:
//
//	opencode auth login github-copilot
//
// # Environment Variables
//
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/opencode/internal/agent"
	"github.com/haasonsaas/opencode/internal/auth"
	"github.com/haasonsaas/opencode/internal/config"
	"github.com/haasonsaas/opencode/internal/lsp"
	"github.com/haasonsaas/opencode/internal/providers"
	"github.com/haasonsaas/opencode/internal/sessions"
	"github.com/haasonsaas/opencode/internal/tools"
	"github.com/haasonsaas/opencode/internal/workspace"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "opencode",
		Short: "opencode - AI coding agent for your terminal",
		Long: `opencode is an AI coding agent that runs in your terminal.

Supported providers: OpenAI (GPT), Anthropic (Claude), GitHub Copilot
Available tools: shell, file read/write/edit, grep, glob, web fetch, todos

Documentation: https://github.com/haasonsaas/opencode`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildServeCmd(),
		buildTuiCmd(),
		buildAuthCmd(),
		buildSessionsCmd(),
		buildModelsCmd(),
		buildModesCmd(),
		buildConfigCmd(),
	)

	return rootCmd
}

// runtime holds everything a command needs after startup wiring.
type runtime struct {
	cfg       *config.Config
	ws        *workspace.Info
	creds     *auth.Store
	flow      *auth.DeviceFlow
	providers *providers.Registry
	tools     *tools.Registry
	sessions  *sessions.Store
	agent     *agent.Agent
}

// newRuntime wires the registries explicitly. Nothing here happens in
// package init; commands that need the full stack call this.
func newRuntime() (*runtime, error) {
	cfg := config.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	ws, err := workspace.Resolve(cwd)
	if err != nil {
		return nil, err
	}

	creds := auth.NewStore()
	flow := auth.NewDeviceFlow(creds)

	preg := providers.NewRegistry()
	preg.Register(providers.NewOpenAIProvider(creds))
	preg.Register(providers.NewAnthropicProvider(creds))
	preg.Register(providers.NewCopilotProvider(flow))

	treg, err := tools.NewDefaultRegistry(lsp.NewClient())
	if err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	store := sessions.NewStore()

	return &runtime{
		cfg:       cfg,
		ws:        ws,
		creds:     creds,
		flow:      flow,
		providers: preg,
		tools:     treg,
		sessions:  store,
		agent:     agent.New(preg, treg, store, cfg, ws),
	}, nil
}

// buildServeCmd creates the "serve" command. The HTTP server surface is
// not implemented yet.
func buildServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("serve is not implemented yet")
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4096", "Listen address")
	return cmd
}

// buildTuiCmd creates the "tui" command. The terminal UI is not
// implemented yet; "run" provides the interactive surface.
func buildTuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("tui is not implemented yet; use `opencode run` for an interactive session")
		},
	}
}
