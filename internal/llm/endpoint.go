package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"telegram-chat-summarizer/internal/config"
	"telegram-chat-summarizer/internal/domain"
	"telegram-chat-summarizer/internal/domain/ports/adapter"
)

var _ adapter.Summarizer = (*EndpointClient)(nil)

// EndpointClient talks to a generic summarization endpoint:
// POST {prompt, history, model} expecting {summary} or {result}.
type EndpointClient struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

func NewEndpointClient(cfg config.LLMConfig) (*EndpointClient, error) {
	if cfg.EndpointURL == "" {
		return nil, errors.New("llm endpoint url empty")
	}
	return &EndpointClient{
		url:    cfg.EndpointURL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *EndpointClient) Model() string { return c.model }

func (c *EndpointClient) Summarize(ctx context.Context, prompt, history string) (string, error) {
	reqBody := struct {
		Prompt  string `json:"prompt"`
		History string `json:"history"`
		Model   string `json:"model"`
	}{Prompt: prompt, History: history, Model: c.model}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.WithKind(domain.KindTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("llm endpoint http %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", domain.WithKind(domain.KindTransient, err)
		}
		return "", err
	}

	var payload struct {
		Summary string `json:"summary"`
		Result  string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("llm endpoint body: %w", err)
	}
	summary := payload.Summary
	if summary == "" {
		summary = payload.Result
	}
	if summary == "" {
		return "", domain.ErrEmptySummary
	}
	return summary, nil
}
