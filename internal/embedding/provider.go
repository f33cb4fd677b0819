package embedding

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// #region provider-interface

// Provider abstracts the external embedding service. Implementations must be
// concurrency-safe; all vocabularies are assumed to share one aligned space.
type Provider interface {
	// Name returns the provider name (e.g. "ollama", "openai").
	Name() string
	// Dimensions returns the embedding dimensionality this provider produces.
	Dimensions() int
	// Embed returns one vector per input string.
	Embed(ctx context.Context, inputs []string) ([]Vector, error)
}

// #endregion provider-interface

// #region from-env

// NewFromEnv constructs a provider from environment variables.
// EMBEDDINGS_PROVIDER: "ollama", "openai", or empty for disabled (nil).
func NewFromEnv() Provider {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("EMBEDDINGS_PROVIDER")))
	switch name {
	case "ollama":
		return newOllamaFromEnv()
	case "openai":
		return newOpenAIFromEnv()
	default:
		return nil
	}
}

// envDims parses an integer dimension override from env, or returns fallback.
func envDims(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// #endregion from-env
