package llm

import (
	"context"
	"fmt"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
)

// NewSummarizer builds the configured provider adapter.
func NewSummarizer(ctx context.Context, cfg config.LLMConfig) (adapter.Summarizer, error) {
	switch cfg.Provider {
	case "", "endpoint":
		return NewEndpointClient(cfg)
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model)
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
