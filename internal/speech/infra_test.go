package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
)

func newOpenAI(t *testing.T, h http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestOpenAIClient_Transcribe(t *testing.T) {
	client := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("expected language en, got %q", got)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("expected whisper-1, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"what is two plus two"}`))
	})

	c := NewOpenAIClient(client, "whisper-1", "en", "tts-1", "alloy")
	text, err := c.Transcribe(context.Background(), []byte("RIFF....WAVE"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "what is two plus two" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestOpenAIClient_Synthesize(t *testing.T) {
	client := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Input          string `json:"input"`
			Voice          string `json:"voice"`
			ResponseFormat string `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Input != "Four." || req.Voice != "alloy" || req.ResponseFormat != "wav" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF-audio"))
	})

	c := NewOpenAIClient(client, "whisper-1", "en", "tts-1", "alloy")
	audio, err := c.Synthesize(context.Background(), "Four.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "RIFF-audio" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestOpenAIClient_SynthesizeHTTPError(t *testing.T) {
	client := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})

	c := NewOpenAIClient(client, "whisper-1", "en", "tts-1", "alloy")
	if _, err := c.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestDeepgramClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token dg-key" {
			t.Errorf("missing auth header")
		}
		if r.URL.Query().Get("language") != "en" {
			t.Errorf("expected language=en, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"hello world"}]}]}}`))
	}))
	defer srv.Close()

	c := NewDeepgramClient("dg-key", srv.URL+"/v1/listen", "en")
	text, err := c.Transcribe(context.Background(), []byte("RIFF"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestDeepgramClient_Failures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500); _, _ = w.Write([]byte("oops")) }},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not-json")) }},
		{"no_channels", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"results":{"channels":[]}}`)) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			c := NewDeepgramClient("dg-key", srv.URL, "en")
			if _, err := c.Transcribe(context.Background(), []byte("RIFF")); err == nil {
				t.Fatalf("expected error; got nil")
			}
		})
	}
}

func TestDeepgramClient_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "200")
		_, _ = w.Write([]byte(`{"results":`))
	}))
	defer srv.Close()

	c := NewDeepgramClient("dg-key", srv.URL, "en")
	_, err := c.Transcribe(context.Background(), []byte("RIFF"))
	if err == nil || !strings.Contains(err.Error(), "read deepgram response") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestElevenLabsClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing api key")
		}
		if r.URL.Query().Get("output_format") != "wav_44100" {
			t.Errorf("unexpected output_format %q", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"text":"Four."`) {
			t.Errorf("unexpected body %s", body)
		}
		_, _ = w.Write([]byte("RIFF-eleven"))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("el-key", srv.URL+"/v1/text-to-speech", "voice-1", "wav_44100")
	audio, err := c.Synthesize(context.Background(), "Four.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "RIFF-eleven" {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestElevenLabsClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad key"}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("el-key", srv.URL, "", "")
	if _, err := c.Synthesize(context.Background(), "hi"); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected elevenlabs error, got %v", err)
	}
}
