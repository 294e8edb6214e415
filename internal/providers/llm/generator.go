package llm

import "context"

// GenerationConfig holds the sampling parameters sent with every prompt.
type GenerationConfig struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
}

// Generator turns a fully formatted prompt into the model's raw continuation.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}

// Loader builds a ready Generator. It is called until it succeeds once.
type Loader func(ctx context.Context) (Generator, error)
