package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
)

type ElevenLabsClient struct {
	apiKey       string
	endpoint     string
	voiceID      string
	outputFormat string
	httpCli      *http.Client
}

func NewElevenLabsClient(apiKey, endpoint, voiceID, outputFormat string) *ElevenLabsClient {
	if voiceID == "" {
		voiceID = "EXAVITQu4vr4xnSDxMaL" // Rachel (дефолт)
	}
	return &ElevenLabsClient{
		apiKey:       apiKey,
		endpoint:     endpoint,
		voiceID:      voiceID,
		outputFormat: outputFormat,
		httpCli:      &http.Client{Timeout: 90 * time.Second},
	}
}

// TEXT → SPEECH
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	u, err := url.Parse(c.endpoint + "/" + url.PathEscape(c.voiceID))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs endpoint: %w", err)
	}
	if c.outputFormat != "" {
		q := u.Query()
		q.Set("output_format", c.outputFormat)
		u.RawQuery = q.Encode()
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs error: %s", string(b))
	}

	return io.ReadAll(resp.Body)
}
