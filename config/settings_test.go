package config

import (
	"os"
	"testing"
)

func TestSettingsRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := Default()
	cfg.ActiveProvider = "remote"
	cfg.SystemPrompt = "always answer in haiku"
	cfg.Providers["remote"] = ProviderConfig{
		BaseURL: "https://example.com/v1",
		Model:   "gpt-4o",
		APIKey:  "sk-test",
	}

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(SettingsFilePath())
	if err != nil {
		t.Fatalf("settings file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions: got %o, want 0600", perm)
	}

	loaded, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if loaded.ActiveProvider != "remote" {
		t.Errorf("provider: got %q", loaded.ActiveProvider)
	}
	if loaded.SystemPrompt != "always answer in haiku" {
		t.Errorf("system prompt: got %q", loaded.SystemPrompt)
	}
	remote := loaded.Provider("remote")
	if remote.Model != "gpt-4o" || remote.APIKey != "sk-test" {
		t.Errorf("remote config: got %+v", remote)
	}
}

func TestLoadSettingsCreatesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if cfg.ActiveProvider != "local" {
		t.Errorf("provider: got %q, want default", cfg.ActiveProvider)
	}
	if !FileExists(SettingsFilePath()) {
		t.Error("first load should create the settings file")
	}
}
