package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voice_roundtrip/internal/config"
	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
	openai "github.com/sashabaranov/go-openai"
)

var ErrGenerationUnavailable = errors.New("generation unavailable")

type AiService struct {
	gen      TextGenerator
	template string
	params   Params
	maxChars int
	timeout  time.Duration
	log      *logger.ZapLogger
}

func NewAiService(gen TextGenerator, cfg config.LLMConfig, log *logger.ZapLogger) *AiService {
	return &AiService{
		gen:      gen,
		template: cfg.PromptTemplate,
		params: Params{
			MaxTokens:         cfg.MaxTokens,
			Temperature:       cfg.Temperature,
			RepetitionPenalty: cfg.RepetitionPenalty,
		},
		maxChars: cfg.MaxReplyChars,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

// диагностика ошибок провайдера (только для логов, наружу не уходит)
func analyzeOpenAIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Provider timed out."
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	msg := strings.ToLower(err.Error())
	switch {
	case status == 401 || strings.Contains(msg, "status code: 401"):
		return "Invalid API key."
	case status == 404 || strings.Contains(msg, "status code: 404"):
		return "Model not found."
	case status == 429 || strings.Contains(msg, "status code: 429"):
		return "Rate limit exceeded."
	case (status == 400 || strings.Contains(msg, "status code: 400")) && strings.Contains(msg, "model"):
		return "Wrong model name."
	case status == 400 || strings.Contains(msg, "status code: 400"):
		return "Malformed request."
	case status >= 500 || strings.Contains(msg, "status code: 5"):
		return "Provider internal error."
	}
	return "Unknown provider error: " + err.Error()
}

// === главный метод ===
func (s *AiService) Generate(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ports.ErrEmptyInput
	}

	start := time.Now()
	prompt := fmt.Sprintf(s.template, input)

	gctx := ctx
	cancel := func() {}
	if s.timeout > 0 {
		gctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	defer cancel()

	reply, err := s.gen.Complete(gctx, prompt, s.params)
	if err != nil {
		diag := analyzeOpenAIError(err)
		s.log.Log(logger.LogEntry{
			Level:   "error",
			Message: fmt.Sprintf("[ai][%.1fs] generation failed: %s", time.Since(start).Seconds(), diag),
			Service: "ai",
			Error:   err,
		})
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, ports.ErrTimeout)
		}
		return "", fmt.Errorf("%w: %s", ErrGenerationUnavailable, diag)
	}

	reply = truncate(strings.TrimSpace(reply), s.maxChars)
	if reply == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationUnavailable)
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("[ai][%.1fs] reply %d chars", time.Since(start).Seconds(), utf8.RuneCountInString(reply)),
		Service: "ai",
	})
	return reply, nil
}

// truncate режет по рунам, стараясь не рвать последнее слово.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)[:max]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, " \n\t"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
