package service

import (
	"encoding/json"
	"strings"
)

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// OpenAIStreamChunkParser parses standard OpenAI-format streaming chunks
type OpenAIStreamChunkParser struct{}

// ParseChunk converts standard OpenAI chunk to generic StreamChunk
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var rawChunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content,omitempty"`
			} `json:"delta"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(data, &rawChunk); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(rawChunk.Choices) > 0 {
		chunk.Content = rawChunk.Choices[0].Delta.Content
	}
	return chunk, nil
}

// ReasoningStreamChunkParser parses chunks of providers that stream a separate
// reasoning_content field next to the answer (NVIDIA-hosted DeepSeek and similar)
type ReasoningStreamChunkParser struct{}

// ParseChunk converts a reasoning-capable chunk to generic StreamChunk
func (p *ReasoningStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var rawChunk struct {
		Choices []struct {
			Delta struct {
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
			} `json:"delta"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(data, &rawChunk); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(rawChunk.Choices) > 0 {
		delta := rawChunk.Choices[0].Delta
		chunk.Content = delta.Content
		if delta.ReasoningContent != nil {
			chunk.ThinkingContent = *delta.ReasoningContent
		}
	}
	return chunk, nil
}

// parserFor picks the chunk parser matching an API base URL
func parserFor(baseURL string) (StreamChunkParser, string) {
	switch {
	case strings.Contains(baseURL, "integrate.api.nvidia.com"), strings.Contains(baseURL, "api.deepseek.com"):
		return &ReasoningStreamChunkParser{}, "reasoning"
	case strings.Contains(baseURL, "api.openai.com"):
		return &OpenAIStreamChunkParser{}, "openai"
	default:
		return &OpenAIStreamChunkParser{}, "openai-compatible"
	}
}
