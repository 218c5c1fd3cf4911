package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

func loadSettings() (*Config, error) {
	cfg := Default()
	settingsPath := SettingsFilePath()

	if !FileExists(settingsPath) {
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(settingsPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	return cfg, nil
}

// Save writes the settings file with user-only permissions; the file may
// contain API keys.
func Save(cfg *Config) error {
	configDir := ConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := SettingsFilePath()
	f, err := os.OpenFile(settingsPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	return nil
}
