package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/voice_roundtrip/internal/ai"
	"github.com/Vovarama1992/voice_roundtrip/internal/config"
	"github.com/Vovarama1992/voice_roundtrip/internal/delivery"
	"github.com/Vovarama1992/voice_roundtrip/internal/error_notificator"
	"github.com/Vovarama1992/voice_roundtrip/internal/infra"
	"github.com/Vovarama1992/voice_roundtrip/internal/metrics"
	"github.com/Vovarama1992/voice_roundtrip/internal/pipeline"
	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
	"github.com/Vovarama1992/voice_roundtrip/internal/speech"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / CONFIG
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}

	// =========================================================================
	// ERROR NOTIFICATION
	// =========================================================================

	var errInfra error_notificator.Notificator
	if cfg.Telegram.BotToken != "" {
		tg, err := error_notificator.NewTelegramInfra(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		if err != nil {
			log.Fatalf("failed to init telegram notifier: %v", err)
		}
		errInfra = tg
	}
	errService := error_notificator.NewService(errInfra, zl)

	// =========================================================================
	// CLIENTS (STT / LLM / TTS)
	// =========================================================================

	var openAIClient *openai.Client
	if cfg.OpenAI.APIKey != "" {
		oc := openai.DefaultConfig(cfg.OpenAI.APIKey)
		if cfg.OpenAI.BaseURL != "" {
			oc.BaseURL = cfg.OpenAI.BaseURL
		}
		openAIClient = openai.NewClientWithConfig(oc)
	}

	recognizer, err := newRecognizer(cfg.STT, openAIClient)
	if err != nil {
		log.Fatal(err)
	}
	generator, err := newGenerator(cfg.LLM, openAIClient)
	if err != nil {
		log.Fatal(err)
	}
	synthesizer, err := newSynthesizer(cfg.TTS, openAIClient)
	if err != nil {
		log.Fatal(err)
	}

	// =========================================================================
	// METRICS
	// =========================================================================

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	// =========================================================================
	// PIPELINE
	// =========================================================================

	flag := &pipeline.Readiness{}

	orchestrator := pipeline.NewOrchestrator(
		store,
		speech.NewTranscriber(recognizer, cfg.STT.Timeout, zl),
		ai.NewAiService(generator, cfg.LLM, zl),
		speech.NewVoicer(synthesizer, store, flag, cfg.TTS.Timeout, zl),
		flag,
		errService,
		recorder,
		zl,
		pipeline.Options{
			AdmissionTimeout: cfg.Pipeline.AdmissionTimeout,
			History:          cfg.Pipeline.History,
		},
	)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Cycle-ID", "Retry-After"},
		MaxAge:         300,
	}))

	voiceHandler := delivery.NewVoiceHandler(orchestrator, store, zl, cfg.Pipeline.MaxUploadBytes)
	delivery.RegisterRoutes(r, voiceHandler, metrics.Handler(reg), cfg.RateLimitPerMinute)

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: fmt.Sprintf("listening at %s (stt=%s llm=%s tts=%s storage=%s)", addr, cfg.STT.Provider, cfg.LLM.Provider, cfg.TTS.Provider, cfg.Storage.Backend),
			Service: "voice_roundtrip",
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "http shutdown", Service: "voice_roundtrip", Error: err})
	}
	// фоновая озвучка после /uploadAudio должна дописаться
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "pipeline shutdown", Service: "voice_roundtrip", Error: err})
	}
}

func newStore(ctx context.Context, cfg config.StorageConfig) (ports.ResourceStore, error) {
	switch cfg.Backend {
	case "s3":
		return infra.NewS3Store(ctx, cfg.S3)
	default:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		return infra.NewFileStore(cfg.Dir), nil
	}
}

func newRecognizer(cfg config.STTConfig, oc *openai.Client) (speech.SpeechRecognizer, error) {
	switch cfg.Provider {
	case "deepgram":
		return speech.NewDeepgramClient(cfg.DeepgramAPIKey, cfg.DeepgramURL, cfg.Language), nil
	case "openai":
		if oc == nil {
			return nil, errors.New("stt: OPENAI_API_KEY is not set")
		}
		return speech.NewOpenAIClient(oc, cfg.Model, cfg.Language, "", ""), nil
	}
	return nil, fmt.Errorf("stt: unknown provider %q", cfg.Provider)
}

func newGenerator(cfg config.LLMConfig, oc *openai.Client) (ai.TextGenerator, error) {
	switch cfg.Provider {
	case "perplexity":
		return ai.NewPerplexityClient(cfg.PerplexityAPIKey, cfg.PerplexityURL, cfg.Model), nil
	case "chat", "completion":
		if oc == nil {
			return nil, errors.New("llm: OPENAI_API_KEY is not set")
		}
		if cfg.Provider == "completion" {
			return ai.NewCompletionClient(oc, cfg.Model), nil
		}
		return ai.NewChatClient(oc, cfg.Model), nil
	}
	return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
}

func newSynthesizer(cfg config.TTSConfig, oc *openai.Client) (speech.SpeechSynthesizer, error) {
	switch cfg.Provider {
	case "elevenlabs":
		return speech.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsURL, cfg.ElevenLabsVoice, cfg.OutputFormat), nil
	case "openai":
		if oc == nil {
			return nil, errors.New("tts: OPENAI_API_KEY is not set")
		}
		return speech.NewOpenAIClient(oc, "", "", cfg.Model, cfg.Voice), nil
	}
	return nil, fmt.Errorf("tts: unknown provider %q", cfg.Provider)
}
