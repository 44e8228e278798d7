package ai

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no AI credential is configured for the
// requested capability.
var ErrNoProvider = errors.New("no AI provider configured")

// Embedder turns texts into fixed-dimension vectors. Implementations must
// preserve order: vector i corresponds to texts[i]. The dimension is fixed per
// deployment; mixing models in one index breaks cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates text from a system prompt and a user message.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Provider bundles the two capabilities a deployment configures once.
type Provider interface {
	Embedder
	Completer
	Name() string
}
