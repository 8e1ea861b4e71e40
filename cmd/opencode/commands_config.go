package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/opencode/internal/config"
	"github.com/haasonsaas/opencode/internal/prompt"
)

// buildModelsCmd creates the "models" command listing providers and models.
func buildModelsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available providers and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range rt.providers.List() {
				info := p.Info()
				authed := p.IsAuthenticated(cmd.Context())
				if !authed && !all {
					continue
				}
				status := "authenticated"
				if !authed {
					status = "not authenticated"
				}
				fmt.Fprintf(out, "%s (%s)\n", info.Name, status)
				for _, m := range info.Models {
					fmt.Fprintf(out, "  %s/%s", info.ID, m.ID)
					if m.ContextLength > 0 {
						fmt.Fprintf(out, "  %dk context", m.ContextLength/1000)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include providers without credentials")
	return cmd
}

// buildModesCmd creates the "modes" command listing interaction modes.
func buildModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List interaction modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Modes:")
			for _, m := range prompt.ListModes(cfg) {
				fmt.Fprintf(out, "  %s", m.Name)
				if m.Description != "" {
					fmt.Fprintf(out, " - %s", m.Description)
				}
				if len(m.Tools) > 0 {
					fmt.Fprintf(out, " (tools: %s)", strings.Join(m.Tools, ", "))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

// buildConfigCmd creates the "config" command group.
func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get and set configuration values",
	}
	cmd.AddCommand(buildConfigGetCmd(), buildConfigSetCmd())
	return cmd
}

func buildConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print a config value, or all values without a key",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
				fmt.Fprintf(out, "autoshare: %t\n", cfg.Autoshare)
				fmt.Fprintf(out, "default_provider: %s\n", cfg.DefaultProvider)
				fmt.Fprintf(out, "default_model: %s\n", cfg.DefaultModel)
				return nil
			}
			value, err := configValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		},
	}
}

func buildConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if _, err := configValue(config.Load(), key); err != nil {
				return err
			}
			if err := config.Update(func(c *config.Config) {
				switch key {
				case "log_level":
					c.LogLevel = value
				case "autoshare":
					c.Autoshare, _ = strconv.ParseBool(value)
				case "default_provider":
					c.DefaultProvider = value
				case "default_model":
					c.DefaultModel = value
				}
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			return nil
		},
	}
}

func configValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "log_level":
		return cfg.LogLevel, nil
	case "autoshare":
		return strconv.FormatBool(cfg.Autoshare), nil
	case "default_provider":
		return cfg.DefaultProvider, nil
	case "default_model":
		return cfg.DefaultModel, nil
	default:
		return "", fmt.Errorf("unknown config key %q (log_level, autoshare, default_provider, default_model)", key)
	}
}
