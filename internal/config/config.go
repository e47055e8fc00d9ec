// Package config loads and saves the gentabs configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gentabs configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Output locale for generated apps
	Locale string `yaml:"locale"`

	// Source workspace
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Session persistence
	Storage StorageConfig `yaml:"storage"`

	// Agent pipeline presentation
	Agent AgentConfig `yaml:"agent"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

// WorkspaceConfig configures the source directory.
type WorkspaceConfig struct {
	SourceDir string `yaml:"source_dir"`
	Watch     bool   `yaml:"watch"`
}

// StorageConfig configures session persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// AgentConfig configures the pipeline status presentation.
type AgentConfig struct {
	// StageDelay is the bridging delay between scripted stage transitions.
	StageDelay string `yaml:"stage_delay"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "gentabs",
		Version: "0.1.0",

		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
			Timeout:  "60s",
		},

		Locale: "English",

		Workspace: WorkspaceConfig{
			SourceDir: "sources",
			Watch:     true,
		},

		Storage: StorageConfig{
			DatabasePath: "data/gentabs.db",
		},

		Agent: AgentConfig{
			StageDelay: "600ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if path := os.Getenv("GENTABS_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if dir := os.Getenv("GENTABS_SOURCES"); dir != "" {
		c.Workspace.SourceDir = dir
	}
	if locale := os.Getenv("GENTABS_LOCALE"); locale != "" {
		c.Locale = locale
	}
}

// GetLLMTimeout returns the provider timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetStageDelay returns the pipeline bridging delay as a duration.
func (c *Config) GetStageDelay() time.Duration {
	d, err := time.ParseDuration(c.Agent.StageDelay)
	if err != nil {
		return 600 * time.Millisecond
	}
	return d
}
