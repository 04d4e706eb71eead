package ai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

type PerplexityClient struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

func NewPerplexityClient(apiKey, endpoint, model string) *PerplexityClient {
	if model == "" {
		model = "sonar"
	}
	return &PerplexityClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model            string              `json:"model"`
	Messages         []perplexityMessage `json:"messages"`
	MaxTokens        int                 `json:"max_tokens,omitempty"`
	Temperature      float32             `json:"temperature"`
	FrequencyPenalty float32             `json:"frequency_penalty,omitempty"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *PerplexityClient) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	reqBody := perplexityRequest{
		Model: c.model,
		Messages: []perplexityMessage{
			{
				Role:    "system",
				Content: "You are a concise voice assistant. Answer in one or two short sentences, no lists, no markdown.",
			},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
	// у Perplexity frequency_penalty > 0 (1.0 = без штрафа)
	if p.RepetitionPenalty > 0 {
		reqBody.FrequencyPenalty = p.RepetitionPenalty
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(b))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("perplexity status code: %d", resp.StatusCode)
	}

	var out perplexityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	if len(out.Choices) == 0 {
		return "", nil
	}

	return out.Choices[0].Message.Content, nil
}
