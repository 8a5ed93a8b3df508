package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig represents the configuration for the embedding provider.
type EmbedderConfig struct {
	Model   string
	BaseURL string // OpenAI-compatible server URL, empty for the default
	APIKey  string
}

// Embedder creates embeddings for document chunks and queries through an
// OpenAI-compatible endpoint.
type Embedder struct {
	config EmbedderConfig
	llm    *openai.LLM
}

// NewEmbedderWithConfig creates a new Embedder with the given configuration.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}

	opts := []openai.Option{
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    llm,
	}, nil
}

// CreateEmbedding returns one vector per input text, in input order.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(embeddings), len(texts))
	}
	return embeddings, nil
}
