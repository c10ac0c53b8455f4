package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fragrance-sync-layer/internal/domain"

	"github.com/rs/zerolog"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to the OpenAI chat completions API. It implements
// ports.ChatModel.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOpenAIClient creates a chat model client bound to one model name.
func NewOpenAIClient(apiKey, model string, logger zerolog.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultOpenAIBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// NewOpenAIClientWithBaseURL is used by tests to point at a stub server.
func NewOpenAIClientWithBaseURL(apiKey, model, baseURL string, logger zerolog.Logger) *OpenAIClient {
	c := NewOpenAIClient(apiKey, model, logger)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// Complete runs one chat exchange and returns the raw text answer.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, openAIOptions{temperature: 0.3, maxTokens: 800})
}

// CompleteJSON runs one chat exchange with the response constrained to a
// single JSON object.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, systemPrompt, userPrompt, openAIOptions{temperature: 0.1, jsonMode: true})
}

type openAIOptions struct {
	temperature float64
	maxTokens   int
	jsonMode    bool
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string, opts openAIOptions) (string, error) {
	reqBody := openAIRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: opts.temperature,
		MaxTokens:   opts.maxTokens,
	}
	if opts.jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &domain.RateLimitedError{Platform: "openai"}
	case resp.StatusCode >= 500:
		return "", &domain.TransientError{Platform: "openai", Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return "", &domain.UpstreamError{Platform: "openai", Status: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
