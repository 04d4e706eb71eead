package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient — Whisper для распознавания и tts-модель для озвучки.
type OpenAIClient struct {
	client   *openai.Client
	sttModel string
	language string
	ttsModel string
	voice    string
}

func NewOpenAIClient(client *openai.Client, sttModel, language, ttsModel, voice string) *OpenAIClient {
	return &OpenAIClient{
		client:   client,
		sttModel: sttModel,
		language: language,
		ttsModel: ttsModel,
		voice:    voice,
	}
}

// Transcribe — голос → текст, без временных меток.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.sttModel,
		FilePath: "recording.wav",
		Reader:   bytes.NewReader(audio),
		Language: c.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper request: %w", err)
	}
	return resp.Text, nil
}

// Synthesize — текст → wav.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read openai speech: %w", err)
	}
	return audio, nil
}
