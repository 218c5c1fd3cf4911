package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateConfig checks a provider configuration before the factory runs,
// so misconfiguration surfaces as one readable error instead of a failed
// first turn.
func ValidateConfig(cfg Config) error {
	switch cfg.Type {
	case TypeRemote, TypeAnthropic:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return fmt.Errorf("%s provider requires an API key", cfg.Type)
		}
	case TypeLocal:
		// No key; the engine URL defaults when empty.
	default:
		return fmt.Errorf("unknown provider type: %s", cfg.Type)
	}

	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
		}
	}

	return nil
}
