package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient — одношаговый диалог через chat/completions.
type ChatClient struct {
	client *openai.Client
	model  string
}

func NewChatClient(client *openai.Client, model string) *ChatClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &ChatClient{client: client, model: model}
}

func (c *ChatClient) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:        p.MaxTokens,
		Temperature:      p.Temperature,
		FrequencyPenalty: frequencyPenalty(p.RepetitionPenalty),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// CompletionClient — обычная генерация текста по промпту, без эха промпта.
type CompletionClient struct {
	client *openai.Client
	model  string
}

func NewCompletionClient(client *openai.Client, model string) *CompletionClient {
	if model == "" {
		model = openai.GPT3Dot5TurboInstruct
	}
	return &CompletionClient{client: client, model: model}
}

func (c *CompletionClient) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	resp, err := c.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:            c.model,
		Prompt:           prompt,
		MaxTokens:        p.MaxTokens,
		Temperature:      p.Temperature,
		FrequencyPenalty: frequencyPenalty(p.RepetitionPenalty),
		Echo:             false,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Text, nil
}

// frequencyPenalty переводит мультипликативный штраф HF (1.0 = нет) в аддитивный OpenAI [-2, 2].
func frequencyPenalty(repetition float32) float32 {
	if repetition == 0 {
		return 0
	}
	fp := repetition - 1
	if fp > 2 {
		return 2
	}
	if fp < -2 {
		return -2
	}
	return fp
}
