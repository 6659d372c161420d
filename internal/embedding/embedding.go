package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docmind/internal/config"
	"docmind/internal/models"
)

// Embedder maps texts to fixed-dimension vectors, preserving input order.
// The pipeline treats the provider as an opaque capability; failures wrap
// models.ErrEmbeddingProvider and are not retried here.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LangchainEmbedder backs the Embedder contract with a langchaingo client
// talking to an openai-compatible endpoint or a local ollama server.
type LangchainEmbedder struct {
	embedder *embeddings.EmbedderImpl
}

func NewEmbedder(llmConfig *config.LLMConfig) (*LangchainEmbedder, error) {
	client, err := newEmbedderClient(llmConfig)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}
	return &LangchainEmbedder{embedder: embedder}, nil
}

func newEmbedderClient(llmConfig *config.LLMConfig) (embeddings.EmbedderClient, error) {
	switch llmConfig.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	default:
		return openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
			openai.WithEmbeddingModel(llmConfig.Model),
		)
	}
}

func (e *LangchainEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingProvider, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", models.ErrEmbeddingProvider, len(vectors), len(texts))
	}
	return vectors, nil
}
