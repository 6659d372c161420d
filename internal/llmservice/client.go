package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"docmind/internal/config"
)

// Client is the language-model capability consumed by the synthesizer.
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// LangchainClient calls an openai-compatible or ollama chat endpoint with
// temperature 0 and a bounded output length.
type LangchainClient struct {
	llm       llms.Model
	maxTokens int
}

func NewClient(llmConfig *config.LLMConfig) (*LangchainClient, error) {
	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case "ollama":
		llm, err = ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	default:
		llm, err = openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %v", err)
	}

	maxTokens := llmConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LangchainClient{llm: llm, maxTokens: maxTokens}, nil
}

func (c *LangchainClient) Generate(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: system}},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: user}},
		},
	}

	res, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return res.Choices[0].Content, nil
}
