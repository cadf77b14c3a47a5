package llm

import (
	"context"
	"errors"
	"strings"

	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/ports/adapter"

	"google.golang.org/genai"
)

var _ adapter.Summarizer = (*GeminiClient)(nil)

// GeminiClient summarizes through the official Gemini SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key empty")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: c, model: model}, nil
}

func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) Summarize(ctx context.Context, prompt, history string) (string, error) {
	contents := genai.Text(prompt + "\n\n" + history)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", domain.ErrEmptySummary
	}
	return text, nil
}
