package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWithKey(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Fatalf("expected default port 3000, got %q", cfg.Port)
	}
	if cfg.LLM.MaxTokens != 50 || cfg.LLM.RepetitionPenalty != 1.2 {
		t.Fatalf("unexpected generation defaults: %+v", cfg.LLM)
	}
	if cfg.STT.Language != "en" {
		t.Fatalf("expected en, got %q", cfg.STT.Language)
	}
}

func TestLoad_MissingOpenAIKey(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected OPENAI_API_KEY error, got %v", err)
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.yaml")
	yml := `
port: "9000"
llm:
  provider: perplexity
  perplexity_api_key: pplx
  max_tokens: 80
  timeout: 5s
tts:
  provider: elevenlabs
  elevenlabs_api_key: el
  voice: rachel
stt:
  provider: deepgram
  deepgram_api_key: dg
pipeline:
  admission_timeout: 2s
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_MAX_TOKENS", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("expected port from file, got %q", cfg.Port)
	}
	if cfg.LLM.MaxTokens != 120 {
		t.Fatalf("expected env override 120, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("expected 5s llm timeout, got %s", cfg.LLM.Timeout)
	}
	if cfg.Pipeline.AdmissionTimeout != 2*time.Second {
		t.Fatalf("expected 2s admission timeout, got %s", cfg.Pipeline.AdmissionTimeout)
	}
	if cfg.TTS.Voice != "rachel" {
		t.Fatalf("expected voice from file, got %q", cfg.TTS.Voice)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TTS_TIMEOUT", "soon")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "TTS_TIMEOUT") {
		t.Fatalf("expected TTS_TIMEOUT error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"template_without_placeholder", func(c *Config) { c.LLM.PromptTemplate = "Answer briefly" }, "LLM_PROMPT_TEMPLATE"},
		{"unknown_storage", func(c *Config) { c.Storage.Backend = "tape" }, "unknown storage backend"},
		{"s3_without_bucket", func(c *Config) { c.Storage.Backend = "s3"; c.Storage.S3.Endpoint = "s3.local" }, "S3_BUCKET"},
		{"telegram_without_chat", func(c *Config) { c.Telegram.BotToken = "tok" }, "TELEGRAM_ADMIN_CHAT_ID"},
		{"unknown_tts", func(c *Config) { c.TTS.Provider = "espeak" }, "unknown tts provider"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.OpenAI.APIKey = "sk-test"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
