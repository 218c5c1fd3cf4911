package provider

import (
	"fmt"

	"github.com/rs/zerolog"
)

// New creates a provider from configuration. This is the single dispatch
// point for all provider types.
func New(cfg Config, log zerolog.Logger) (Provider, error) {
	switch cfg.Type {
	case TypeRemote:
		return NewRemote(cfg.BaseURL, cfg.APIKey, cfg.Model, log)
	case TypeLocal:
		return NewLocal(cfg.BaseURL, cfg.Model, log)
	case TypeAnthropic:
		return NewAnthropic(cfg.BaseURL, cfg.APIKey, cfg.Model, log)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderID converts a user-facing provider ID from config to a factory
// Type. OpenAI-compatible services share the remote adapter. Unknown IDs
// pass through as-is and fail in New.
func MapProviderID(id string) Type {
	switch id {
	case "remote", "openai", "openrouter":
		return TypeRemote
	case "local", "ollama":
		return TypeLocal
	case "anthropic":
		return TypeAnthropic
	default:
		return Type(id)
	}
}
