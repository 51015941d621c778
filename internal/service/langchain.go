package service

import (
	"context"
	"fmt"
	"strings"

	"realty/internal/config"
	"realty/internal/model"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient talks to an OpenAI-compatible endpoint through langchaingo
type LangChainClient struct {
	config   *config.AIConfig
	llm      llms.Model
	embedder embeddings.Embedder
}

// NewLangChainClient creates the chat model and embedder from config
func NewLangChainClient(cfg *config.AIConfig) (*LangChainClient, error) {
	token := cfg.APIKey
	if token == "" {
		// local OpenAI-compatible services accept any token
		token = "none"
	}

	opts := []openai.Option{
		openai.WithBaseURL(cfg.APIBase),
		openai.WithToken(token),
		openai.WithModel(cfg.ChatModel),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain openai client: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(batchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain embedder: %w", err)
	}

	return &LangChainClient{config: cfg, llm: client, embedder: embedder}, nil
}

// IsEnabled returns whether the client is configured and ready
func (c *LangChainClient) IsEnabled() bool {
	return c.config.Enabled
}

// messageContent converts a system instruction and turn history to langchaingo messages
func messageContent(system string, turns []model.Turn) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(turns)+1)
	if system != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, turn := range turns {
		role := llms.ChatMessageTypeHuman
		if turn.Role == model.RoleModel {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, turn.Text))
	}
	return content
}

func (c *LangChainClient) callOptions() []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(c.config.ChatTemperature)}
	if c.config.ChatMaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.config.ChatMaxTokens))
	}
	if c.config.ChatTopP > 0 {
		opts = append(opts, llms.WithTopP(c.config.ChatTopP))
	}
	return opts
}

// Generate returns the assistant reply for the given history
func (c *LangChainClient) Generate(ctx context.Context, system string, turns []model.Turn) (string, error) {
	if !c.config.Enabled {
		return "", ErrAIDisabled
	}

	response, err := c.llm.GenerateContent(ctx, messageContent(system, turns), c.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(response.Choices) < 1 {
		return "", fmt.Errorf("no choices returned from model")
	}
	return response.Choices[0].Content, nil
}

// GenerateStream streams the assistant reply through onDelta
func (c *LangChainClient) GenerateStream(ctx context.Context, system string, turns []model.Turn, onDelta StreamDelta) (string, error) {
	if !c.config.Enabled {
		return "", ErrAIDisabled
	}

	var full strings.Builder
	opts := append(c.callOptions(), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		full.Write(chunk)
		return onDelta("", string(chunk))
	}))

	response, err := c.llm.GenerateContent(ctx, messageContent(system, turns), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if full.Len() == 0 && len(response.Choices) > 0 {
		return response.Choices[0].Content, nil
	}
	return full.String(), nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch
func (c *LangChainClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return nil, ErrAIDisabled
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	return vectors, nil
}
