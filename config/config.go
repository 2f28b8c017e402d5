// Package config loads toolmesh settings from defaults, an optional YAML file
// and TOOLMESH_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hupe1980/toolmesh/agent"
)

// EnvPrefix is stripped from environment variables before mapping
// TOOLMESH_MODEL_PROVIDER to model.provider.
const EnvPrefix = "TOOLMESH_"

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

type Config struct {
	Log        LogConfig        `koanf:"log"`
	Agent      AgentConfig      `koanf:"agent"`
	Model      ModelConfig      `koanf:"model"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Tools      ToolsConfig      `koanf:"tools"`
	Clients    ClientsConfig    `koanf:"clients"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type AgentConfig struct {
	Name        string `koanf:"name"`
	Instruction string `koanf:"instruction"` // text/template, see agent.InstructionData
	Threshold   int    `koanf:"threshold"`
	MaxSteps    int    `koanf:"max_steps"`
}

type ModelConfig struct {
	Provider    string  `koanf:"provider"` // openai, anthropic, gemini, mock
	Name        string  `koanf:"name"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
}

type CheckpointConfig struct {
	// Backend is "local" for in-memory state or a DSN (sqlite:..., postgres://...).
	Backend string `koanf:"backend"`
}

type ToolsConfig struct {
	// Enabled holds indices into builtin.All().
	Enabled []int `koanf:"enabled"`
}

type ClientsConfig struct {
	MCP []MCPServerConfig `koanf:"mcp"`
}

// MCPServerConfig describes one MCP server. Exactly one of Command or URL is set.
type MCPServerConfig struct {
	Name    string   `koanf:"name"`
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
	URL     string   `koanf:"url"`
}

// Default returns the configuration used when nothing else is set.
func Default() map[string]any {
	return map[string]any{
		"log.level":          "info",
		"log.format":         "text",
		"agent.name":         "toolmesh",
		"agent.instruction":  DefaultInstruction,
		"agent.threshold":    3,
		"agent.max_steps":    8,
		"model.provider":     ProviderMock,
		"model.name":         "",
		"model.temperature":  0.0,
		"checkpoint.backend": "local",
	}
}

// DefaultInstruction is the system instruction template used by default.
const DefaultInstruction = agent.DefaultInstruction

// Load reads defaults, then path (when non-empty), then the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range Default() {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config: default %s: %w", key, err)
		}
	}

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// 2. Load from ENV (TOOLMESH_MODEL_PROVIDER -> model.provider)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps TOOLMESH_AGENT_MAX_STEPS to agent.max_steps: the first
// underscore after the prefix separates the section from the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

// Validate rejects unknown providers, negative limits and malformed MCP
// server entries.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not supported", c.Model.Provider))
	}

	if c.Agent.Threshold < 0 {
		errs = append(errs, fmt.Errorf("agent.threshold must not be negative"))
	}
	if c.Agent.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("agent.max_steps must not be negative"))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature must be within [0,2]"))
	}

	for i, idx := range c.Tools.Enabled {
		if idx < 0 {
			errs = append(errs, fmt.Errorf("tools.enabled[%d] must not be negative", i))
		}
	}

	seen := make(map[string]struct{}, len(c.Clients.MCP))
	for i, s := range c.Clients.MCP {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("clients.mcp[%d].name is required", i))
		}
		if _, dup := seen[s.Name]; dup && s.Name != "" {
			errs = append(errs, fmt.Errorf("clients.mcp[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = struct{}{}
		if (s.Command == "") == (s.URL == "") {
			errs = append(errs, fmt.Errorf("clients.mcp[%d] needs exactly one of command or url", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}

	return nil
}
