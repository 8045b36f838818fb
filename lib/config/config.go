// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Upkeep.
//
// Configuration is loaded from a single YAML file specified by:
//   - UPKEEP_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The config file may
// contain environment-specific sections (development, staging,
// production) that override base values when the environment matches.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration for Upkeep.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Server configures the HTTP turn endpoint.
	Server ServerConfig `yaml:"server"`

	// Model configures the reasoning model provider.
	Model ModelConfig `yaml:"model"`

	// Agent configures the conversation controller.
	Agent AgentConfig `yaml:"agent"`

	// Per-environment overrides, applied after the base config.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the fields that can be overridden per environment.
type Overrides struct {
	Paths  *PathsConfig  `yaml:"paths,omitempty"`
	Server *ServerConfig `yaml:"server,omitempty"`
	Model  *ModelConfig  `yaml:"model,omitempty"`
	Agent  *AgentConfig  `yaml:"agent,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Data is where the record store keeps its collection files
	// (tenants.json, contractors.json, knowledge_articles.json,
	// work_orders.json).
	Data string `yaml:"data"`

	// Attachments is the content-addressed photo payload store root.
	Attachments string `yaml:"attachments"`

	// Checkpoints is where end-of-turn conversation checkpoints are
	// written. Empty disables checkpointing.
	Checkpoints string `yaml:"checkpoints"`

	// SessionLog is the JSONL session log file. Empty disables the
	// session log.
	SessionLog string `yaml:"session_log"`
}

// ServerConfig configures the HTTP turn endpoint.
type ServerConfig struct {
	// Listen is the address the turn endpoint binds
	// (e.g., "127.0.0.1:8480").
	Listen string `yaml:"listen"`
}

// ModelConfig configures the reasoning model provider.
type ModelConfig struct {
	// Provider selects the backend: "anthropic" or "openai" (the
	// latter covers any Chat Completions compatible server).
	Provider string `yaml:"provider"`

	// BaseURL overrides the provider's default endpoint. Required
	// for the openai provider, optional for anthropic.
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never appears in the config file.
	APIKeyEnv string `yaml:"api_key_env"`

	// Name is the model identifier for the main conversation.
	Name string `yaml:"name"`

	// JudgeName is the model for the duplicate-detection judgment.
	// Empty means use Name.
	JudgeName string `yaml:"judge_name"`

	// MaxTokens bounds each model response.
	MaxTokens int `yaml:"max_tokens"`
}

// AgentConfig configures the conversation controller.
type AgentConfig struct {
	// MaxIterations caps tool-calling iterations per turn.
	MaxIterations int `yaml:"max_iterations"`

	// HistoryWindow is how many recent history entries are forwarded
	// to the model per request.
	HistoryWindow int `yaml:"history_window"`
}

// Default returns the default configuration. These exist to give all
// fields sensible zero-values; the config file is still required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "upkeep")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Data:        filepath.Join(defaultRoot, "data"),
			Attachments: filepath.Join(defaultRoot, "attachments"),
			Checkpoints: filepath.Join(defaultRoot, "checkpoints"),
			SessionLog:  filepath.Join(defaultRoot, "session.jsonl"),
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8480",
		},
		Model: ModelConfig{
			Provider:  "anthropic",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Name:      "claude-sonnet-4-5",
			MaxTokens: 4096,
		},
		Agent: AgentConfig{
			MaxIterations: 8,
			HistoryWindow: 4,
		},
	}
}

// Load loads configuration from the UPKEEP_CONFIG environment
// variable. There are no fallbacks: if UPKEEP_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("UPKEEP_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("UPKEEP_CONFIG environment variable not set; " +
			"set it to the path of your upkeep.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The config
// file is the single source of truth; environment variables do not
// override values (the API key is read through the variable the file
// names, not merged into the config).
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// applyEnvironmentOverrides merges the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		mergeNonEmpty(&c.Paths.Data, overrides.Paths.Data)
		mergeNonEmpty(&c.Paths.Attachments, overrides.Paths.Attachments)
		mergeNonEmpty(&c.Paths.Checkpoints, overrides.Paths.Checkpoints)
		mergeNonEmpty(&c.Paths.SessionLog, overrides.Paths.SessionLog)
	}
	if overrides.Server != nil {
		mergeNonEmpty(&c.Server.Listen, overrides.Server.Listen)
	}
	if overrides.Model != nil {
		mergeNonEmpty(&c.Model.Provider, overrides.Model.Provider)
		mergeNonEmpty(&c.Model.BaseURL, overrides.Model.BaseURL)
		mergeNonEmpty(&c.Model.APIKeyEnv, overrides.Model.APIKeyEnv)
		mergeNonEmpty(&c.Model.Name, overrides.Model.Name)
		mergeNonEmpty(&c.Model.JudgeName, overrides.Model.JudgeName)
		if overrides.Model.MaxTokens != 0 {
			c.Model.MaxTokens = overrides.Model.MaxTokens
		}
	}
	if overrides.Agent != nil {
		if overrides.Agent.MaxIterations != 0 {
			c.Agent.MaxIterations = overrides.Agent.MaxIterations
		}
		if overrides.Agent.HistoryWindow != 0 {
			c.Agent.HistoryWindow = overrides.Agent.HistoryWindow
		}
	}
}

func mergeNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("invalid environment %q", c.Environment)
	}

	switch c.Model.Provider {
	case "anthropic":
	case "openai":
		if c.Model.BaseURL == "" {
			return fmt.Errorf("model.base_url is required for the openai provider")
		}
	default:
		return fmt.Errorf("invalid model.provider %q (want anthropic or openai)", c.Model.Provider)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Paths.Data == "" {
		return fmt.Errorf("paths.data is required")
	}
	return nil
}

// JudgeModel returns the duplicate-detection model, falling back to
// the main model.
func (c *Config) JudgeModel() string {
	if c.Model.JudgeName != "" {
		return c.Model.JudgeName
	}
	return c.Model.Name
}

// APIKey reads the API key from the configured environment variable.
// An empty APIKeyEnv means no key (local OpenAI-compatible servers).
func (c *Config) APIKey() (string, error) {
	if c.Model.APIKeyEnv == "" {
		return "", nil
	}
	key := strings.TrimSpace(os.Getenv(c.Model.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", c.Model.APIKeyEnv)
	}
	return key, nil
}

// EnsurePaths creates the configured directories.
func (c *Config) EnsurePaths() error {
	dirs := []string{c.Paths.Data, c.Paths.Attachments, c.Paths.Checkpoints}
	if c.Paths.SessionLog != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.SessionLog))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %q: %w", dir, err)
		}
	}
	return nil
}
