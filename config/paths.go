package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ConfigDir returns the platform-specific configuration directory
// Linux/Mac: ~/.config/tandem
// Windows: C:\Users\username\.config\tandem
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		return filepath.Join(userProfile, ".config", "tandem")
	}

	home := os.Getenv("HOME")
	return filepath.Join(home, ".config", "tandem")
}

// DefaultDataDir returns the platform-specific default data directory
// Linux/Mac: ~/.local/share/tandem
// Windows: C:\Users\username\AppData\Local\tandem
func DefaultDataDir() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			localAppData = filepath.Join(userProfile, "AppData", "Local")
		}
		return filepath.Join(localAppData, "tandem")
	}

	home := os.Getenv("HOME")
	return filepath.Join(home, ".local", "share", "tandem")
}

// SettingsFilePath returns the path to settings.toml
func SettingsFilePath() string {
	return filepath.Join(ConfigDir(), "settings.toml")
}

// HomeDir returns the user's home directory across platforms
func HomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("USERPROFILE")
		if home == "" {
			home = os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		}
		if home == "" {
			home = "C:\\"
		}
		return home
	}
	home := os.Getenv("HOME")
	if home == "" {
		home = "/"
	}
	return home
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home := HomeDir()
		path = filepath.Join(home, path[2:])
	}

	path = os.ExpandEnv(path)

	return filepath.Clean(path)
}

// EnsureDir creates a directory if it doesn't exist (0700 - user-only access)
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
