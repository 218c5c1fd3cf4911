package engine

import "strings"

// Model families known to support (or break with) Ollama's tool calling
// API, curated from upstream docs and community testing.
var toolCallingModels = map[string]bool{
	"qwen":      true,
	"llama3.1":  true,
	"llama3.2":  true,
	"llama3.3":  true,
	"mistral":   true,
	"command-r": true,
	"nemotron":  true,
	"granite3":  true,

	"llama3-gradient": false,
	"llama3":          false, // original llama3, not 3.1/3.2/3.3
	"phi":             false,
	"gemma":           false,
	"codellama":       false,
	"deepseek":        false,
}

// Prefixes checked most-specific first so llama3.2 is not matched as llama3.
var orderedPrefixes = []string{
	"llama3.3", "llama3.2", "llama3.1",
	"llama3-gradient",
	"command-r", "qwen", "mistral", "nemotron", "granite3",
	"codellama",
	"llama3",
	"deepseek", "phi", "gemma",
}

// ModelSupportsToolCalling reports whether a model name is known to support
// tool calling. Unknown models default to no support.
func ModelSupportsToolCalling(modelName string) bool {
	modelName = strings.ToLower(modelName)

	for _, prefix := range orderedPrefixes {
		if strings.HasPrefix(modelName, prefix) {
			if supported, exists := toolCallingModels[prefix]; exists {
				return supported
			}
		}
	}
	return false
}
