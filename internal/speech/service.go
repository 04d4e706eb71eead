package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
	"github.com/dustin/go-humanize"
)

var errEmptyAudio = errors.New("synthesizer returned no audio")

// === Распознавание ===

// Transcriber — граница между пайплайном и внешним STT.
// Ошибка провайдера превращается в пустой транскрипт, таймаут — в ports.ErrTimeout.
type Transcriber struct {
	rec     SpeechRecognizer
	timeout time.Duration
	log     *logger.ZapLogger
}

func NewTranscriber(rec SpeechRecognizer, timeout time.Duration, log *logger.ZapLogger) *Transcriber {
	return &Transcriber{rec: rec, timeout: timeout, log: log}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ports.ErrEmptyInput
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	text, err := t.rec.Transcribe(ctx, audio)
	if err != nil {
		if timedOut(ctx, err) {
			return "", fmt.Errorf("transcribe %s: %w", humanize.Bytes(uint64(len(audio))), ports.ErrTimeout)
		}
		t.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "[stt] recognizer failed, treating as no speech",
			Service: "speech",
			Error:   err,
		})
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

// === Озвучка ===

// Voicer озвучивает ответ, кладёт аудио в слот voicedby.wav и выставляет флаг готовности.
// При любой ошибке флаг сбрасывается, а слот не трогается.
type Voicer struct {
	synth   SpeechSynthesizer
	store   ports.ResourceStore
	flag    Flag
	timeout time.Duration
	log     *logger.ZapLogger
}

func NewVoicer(synth SpeechSynthesizer, store ports.ResourceStore, flag Flag, timeout time.Duration, log *logger.ZapLogger) *Voicer {
	return &Voicer{synth: synth, store: store, flag: flag, timeout: timeout, log: log}
}

func (v *Voicer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		v.flag.Set(false)
		return nil, ports.ErrEmptyInput
	}

	sctx, cancel := withTimeout(ctx, v.timeout)
	audio, err := v.synth.Synthesize(sctx, text)
	timeout := err != nil && timedOut(sctx, err)
	cancel()

	if err == nil && len(audio) == 0 {
		err = errEmptyAudio
	}
	if err != nil {
		v.flag.Set(false)
		if timeout {
			return nil, fmt.Errorf("synthesize: %w", ports.ErrTimeout)
		}
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	if err := v.store.Put(ctx, ports.SlotVoiced, audio); err != nil {
		v.flag.Set(false)
		return nil, fmt.Errorf("store synthesized audio: %w", err)
	}
	v.flag.Set(true)

	v.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("[tts] synthesized %s", humanize.Bytes(uint64(len(audio)))),
		Service: "speech",
	})
	return audio, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
