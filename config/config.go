// Package config loads and persists application settings from a TOML file,
// with environment variable overrides for containerized deployments.
package config

import (
	"fmt"
	"os"
)

// ProviderConfig holds connection settings for one backend.
type ProviderConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
}

// SamplingConfig holds the default generation parameters.
type SamplingConfig struct {
	Temperature float64 `toml:"temperature,omitempty"`
	TopK        int     `toml:"top_k,omitempty"`
	TokenBuffer int     `toml:"token_buffer,omitempty"`
}

type Config struct {
	DataDirectory  string                    `toml:"data_directory"`
	ActiveProvider string                    `toml:"provider"`
	SystemPrompt   string                    `toml:"system_prompt,omitempty"`
	Sampling       SamplingConfig            `toml:"sampling"`
	Providers      map[string]ProviderConfig `toml:"providers"`
}

// Default returns the configuration used when no settings file exists yet.
func Default() *Config {
	return &Config{
		DataDirectory:  "~/.local/share/tandem",
		ActiveProvider: "local",
		Sampling: SamplingConfig{
			Temperature: 0.7,
		},
		Providers: map[string]ProviderConfig{
			"local": {
				BaseURL: "http://localhost:11434",
				Model:   "llama3.1:latest",
			},
			"remote": {
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
			},
			"anthropic": {},
		},
	}
}

// DataDir returns the expanded data directory path.
func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Provider returns the settings block for the given provider ID, or an
// empty block when none is configured.
func (c *Config) Provider(id string) ProviderConfig {
	if c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[id]
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("TANDEM_PROVIDER"); p != "" {
		c.ActiveProvider = p
	}
	if dataDir := os.Getenv("TANDEM_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if model := os.Getenv("TANDEM_MODEL"); model != "" {
		pc := c.Provider(c.ActiveProvider)
		pc.Model = model
		c.Providers[c.ActiveProvider] = pc
	}
	if key := os.Getenv("TANDEM_API_KEY"); key != "" {
		pc := c.Provider(c.ActiveProvider)
		pc.APIKey = key
		c.Providers[c.ActiveProvider] = pc
	}
}

// Load reads the settings file, creating a default one on first run, and
// applies environment overrides. The data directory is created with
// user-only permissions.
func Load() (*Config, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}
