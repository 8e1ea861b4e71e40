package prompt

import (
	"fmt"
	"sort"

	"github.com/haasonsaas/opencode/internal/config"
)

// Mode is one interaction mode: a system prompt plus the tools the model
// is allowed to use while it is active.
type Mode struct {
	Name         string
	Description  string
	SystemPrompt string
	Tools        []string
	Model        string
	Temperature  *float64
	MaxTokens    *int
}

var builtinModes = map[string]Mode{
	"default": {
		Name:        "default",
		Description: "Default coding assistant mode",
		SystemPrompt: `You are an AI coding assistant. You help users with programming tasks, code review, debugging, and software development. You have access to various tools to read, write, and modify files, execute commands, and search through codebases.

Key principles:
- Be helpful, accurate, and concise
- Always explain your reasoning
- Ask for clarification when needed
- Use tools appropriately to gather information
- Follow best practices and coding standards
- Be security-conscious`,
		Tools: []string{"bash", "read", "write", "edit", "grep"},
	},
	"review": {
		Name:        "review",
		Description: "Code review and analysis mode",
		SystemPrompt: `You are a code reviewer focused on analyzing code quality, identifying issues, and suggesting improvements. You examine code for:

- Logic errors and bugs
- Performance issues
- Security vulnerabilities
- Code style and best practices
- Architecture and design patterns
- Documentation and comments

Provide constructive feedback with specific suggestions for improvement.`,
		Tools: []string{"read", "grep"},
	},
	"debug": {
		Name:        "debug",
		Description: "Debugging and troubleshooting mode",
		SystemPrompt: `You are a debugging specialist. Help users identify and fix issues in their code. Your approach:

1. Understand the problem and symptoms
2. Analyze relevant code and logs
3. Form hypotheses about the cause
4. Test hypotheses systematically
5. Provide clear explanations and solutions

Use tools to examine code, run tests, and gather diagnostic information.`,
		Tools: []string{"bash", "read", "edit", "grep"},
	},
	"refactor": {
		Name:        "refactor",
		Description: "Code refactoring and improvement mode",
		SystemPrompt: `You are a refactoring specialist focused on improving code structure, readability, and maintainability while preserving functionality. You help with:

- Extracting functions and classes
- Reducing code duplication
- Improving naming and organization
- Applying design patterns
- Optimizing performance
- Modernizing legacy code

Always ensure changes maintain the original behavior.`,
		Tools: []string{"read", "write", "edit", "grep", "bash"},
	},
}

func modeFromConfig(name string, mc config.ModeConfig) Mode {
	return Mode{
		Name:         name,
		Description:  mc.Description,
		SystemPrompt: mc.SystemPrompt,
		Tools:        mc.Tools,
		Model:        mc.Model,
		Temperature:  mc.Temperature,
		MaxTokens:    mc.MaxTokens,
	}
}

// GetMode resolves a mode by name. Config-defined modes take precedence
// over built-ins of the same name.
func GetMode(cfg *config.Config, name string) (Mode, error) {
	if cfg != nil {
		if mc, ok := cfg.Modes[name]; ok {
			return modeFromConfig(name, mc), nil
		}
	}
	if m, ok := builtinModes[name]; ok {
		return m, nil
	}
	return Mode{}, fmt.Errorf("mode %q not found", name)
}

// ListModes returns built-in plus config-defined modes sorted by name.
func ListModes(cfg *config.Config) []Mode {
	byName := make(map[string]Mode, len(builtinModes))
	for name, m := range builtinModes {
		byName[name] = m
	}
	if cfg != nil {
		for name, mc := range cfg.Modes {
			byName[name] = modeFromConfig(name, mc)
		}
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Mode, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out
}

// SaveMode creates or updates a custom mode in the config file.
func SaveMode(m Mode) error {
	return config.Update(func(c *config.Config) {
		if c.Modes == nil {
			c.Modes = make(map[string]config.ModeConfig)
		}
		c.Modes[m.Name] = config.ModeConfig{
			Description:  m.Description,
			SystemPrompt: m.SystemPrompt,
			Tools:        m.Tools,
			Model:        m.Model,
			Temperature:  m.Temperature,
			MaxTokens:    m.MaxTokens,
		}
	})
}

// DeleteMode removes a custom mode. Built-in modes cannot be deleted.
func DeleteMode(name string) error {
	if _, ok := builtinModes[name]; ok {
		return fmt.Errorf("cannot delete built-in mode %q", name)
	}
	cfg := config.Load()
	if _, ok := cfg.Modes[name]; !ok {
		return fmt.Errorf("mode %q not found", name)
	}
	return config.Update(func(c *config.Config) {
		delete(c.Modes, name)
	})
}
