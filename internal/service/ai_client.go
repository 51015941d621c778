package service

import (
	"context"
	"errors"

	"realty/internal/model"
)

// ErrAIDisabled is returned by AI clients that have no API key configured
var ErrAIDisabled = errors.New("AI provider is not enabled (missing API key)")

// Generator produces a reply from a system instruction and an ordered turn history
type Generator interface {
	Generate(ctx context.Context, system string, turns []model.Turn) (string, error)
}

// StreamDelta receives one streamed fragment: reasoning text from providers that
// expose it, or answer content. Exactly one of the two is non-empty.
type StreamDelta func(thinking, content string) error

// StreamingGenerator additionally delivers the reply incrementally through onDelta.
// The returned reply holds the answer content only.
type StreamingGenerator interface {
	Generator
	GenerateStream(ctx context.Context, system string, turns []model.Turn, onDelta StreamDelta) (string, error)
}

// Embedder maps texts into a fixed-dimension vector space
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIClient is the interface for AI service providers
type AIClient interface {
	StreamingGenerator
	Embedder

	// IsEnabled returns whether the AI client is configured and ready
	IsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string
}

// Ensure both providers implement AIClient
var (
	_ AIClient = (*OpenAIClient)(nil)
	_ AIClient = (*LangChainClient)(nil)
)
