package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// === Стадии ===

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, input string) (string, error)
}

// Synthesizer пишет аудио в слот и сам выставляет флаг готовности.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Notifier interface {
	Notify(ctx context.Context, cycleID string, err error, details string) error
}

type Observer interface {
	ObserveStage(stage string, d time.Duration, err error)
	ObserveCycle(source, outcome string)
}

const notifyTimeout = 5 * time.Second

type Options struct {
	// AdmissionTimeout — сколько новый цикл ждёт завершения текущего. <= 0: не ждать.
	AdmissionTimeout time.Duration
	History          int
}

// Orchestrator проводит цикл ingest → transcribe → generate → synthesize.
// Циклы выполняются строго по одному: слот занят от приёма до конца озвучки,
// включая фоновое продолжение после ответа на /uploadAudio.
type Orchestrator struct {
	store    ports.ResourceStore
	stt      Transcriber
	llm      Generator
	tts      Synthesizer
	flag     *Readiness
	notifier Notifier
	observer Observer
	log      *logger.ZapLogger

	gate             chan struct{}
	admissionTimeout time.Duration
	cycles           *registry
	wg               sync.WaitGroup
}

func NewOrchestrator(
	store ports.ResourceStore,
	stt Transcriber,
	llm Generator,
	tts Synthesizer,
	flag *Readiness,
	notifier Notifier,
	observer Observer,
	log *logger.ZapLogger,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		store:            store,
		stt:              stt,
		llm:              llm,
		tts:              tts,
		flag:             flag,
		notifier:         notifier,
		observer:         observer,
		log:              log,
		gate:             make(chan struct{}, 1),
		admissionTimeout: opts.AdmissionTimeout,
		cycles:           newRegistry(opts.History),
	}
}

// Ingest принимает запись. Возвращает цикл с транскриптом сразу после распознавания;
// генерация и озвучка продолжаются в фоне, их итог виден через Ready и Cycle.
func (o *Orchestrator) Ingest(ctx context.Context, audio []byte) (Cycle, error) {
	if len(audio) == 0 {
		return Cycle{}, ports.ErrEmptyInput
	}

	release, err := o.admit(ctx)
	if err != nil {
		return Cycle{}, err
	}
	handedOff := false
	defer func() {
		if !handedOff {
			release()
		}
	}()

	id := o.begin(SourceAudio, StateIngesting)
	o.logInfo(id, fmt.Sprintf("ingest %s", humanize.Bytes(uint64(len(audio)))))

	start := time.Now()
	err = o.store.Put(ctx, ports.SlotRecording, audio)
	o.observe(StateIngesting, start, err)
	if err != nil {
		return o.fail(ctx, id, StateIngesting, ErrIngestion, err)
	}

	o.advance(id, StateTranscribing)
	start = time.Now()
	text, err := o.stt.Transcribe(ctx, audio)
	o.observe(StateTranscribing, start, err)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errNoSpeech
	}
	if err != nil {
		return o.fail(ctx, id, StateTranscribing, ErrRecognition, err)
	}
	text = strings.TrimSpace(text)
	o.logInfo(id, fmt.Sprintf("transcribed %q", text))

	snapshot := o.cycles.update(id, func(c *Cycle) {
		c.Transcript = text
		c.State = StateGenerating
	})

	// ответ клиенту не ждёт озвучки
	handedOff = true
	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer release()
		_, _ = o.respond(bg, id, text)
	}()

	return snapshot, nil
}

// SubmitText — прямой текстовый вход: генерация и озвучка синхронно.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) (Cycle, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Cycle{}, ports.ErrEmptyInput
	}

	release, err := o.admit(ctx)
	if err != nil {
		return Cycle{}, err
	}
	defer release()

	id := o.begin(SourceText, StateGenerating)
	o.logInfo(id, fmt.Sprintf("text input %q", text))
	return o.respond(ctx, id, text)
}

func (o *Orchestrator) Ready() bool {
	return o.flag.Ready()
}

func (o *Orchestrator) Cycle(id string) (Cycle, bool) {
	return o.cycles.get(id)
}

func (o *Orchestrator) Latest() (Cycle, bool) {
	return o.cycles.latest()
}

// Shutdown ждёт фоновые циклы и уведомления или истечения ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// respond: generate → synthesize. Вызывается с занятым слотом.
func (o *Orchestrator) respond(ctx context.Context, id, input string) (Cycle, error) {
	o.advance(id, StateGenerating)
	start := time.Now()
	reply, err := o.llm.Generate(ctx, input)
	o.observe(StateGenerating, start, err)
	if err != nil {
		return o.fail(ctx, id, StateGenerating, ErrGeneration, err)
	}
	reply = strings.TrimSpace(reply)
	o.logInfo(id, fmt.Sprintf("reply %q", reply))

	o.cycles.update(id, func(c *Cycle) {
		c.Reply = reply
		c.State = StateSynthesizing
	})

	start = time.Now()
	audio, err := o.tts.Synthesize(ctx, reply)
	o.observe(StateSynthesizing, start, err)
	if err != nil {
		return o.fail(ctx, id, StateSynthesizing, ErrSynthesis, err)
	}

	now := time.Now()
	c := o.cycles.update(id, func(c *Cycle) {
		c.State = StateReady
		c.AudioBytes = len(audio)
		c.FinishedAt = &now
	})
	if o.observer != nil {
		o.observer.ObserveCycle(string(c.Source), string(StateReady))
	}
	o.logInfo(id, fmt.Sprintf("ready, %s of audio", humanize.Bytes(uint64(len(audio)))))
	return c, nil
}

// admit занимает единственный слот цикла.
func (o *Orchestrator) admit(ctx context.Context) (func(), error) {
	var once sync.Once
	release := func() { once.Do(func() { <-o.gate }) }

	if o.admissionTimeout <= 0 {
		select {
		case o.gate <- struct{}{}:
			return release, nil
		default:
			return nil, ErrBusy
		}
	}

	timer := time.NewTimer(o.admissionTimeout)
	defer timer.Stop()

	select {
	case o.gate <- struct{}{}:
		return release, nil
	case <-timer.C:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// begin сбрасывает флаг до любой работы нового цикла.
func (o *Orchestrator) begin(source Source, state State) string {
	o.flag.Set(false)

	c := &Cycle{
		ID:        uuid.NewString(),
		Source:    source,
		State:     state,
		StartedAt: time.Now(),
	}
	o.cycles.add(c)
	return c.ID
}

func (o *Orchestrator) advance(id string, state State) {
	o.cycles.update(id, func(c *Cycle) { c.State = state })
}

func (o *Orchestrator) fail(ctx context.Context, id string, stage State, kind, cause error) (Cycle, error) {
	o.flag.Set(false)

	serr := &StageError{
		Stage:     stage,
		Kind:      kind,
		Retryable: errors.Is(cause, ports.ErrTimeout),
		Err:       cause,
	}

	now := time.Now()
	c := o.cycles.update(id, func(c *Cycle) {
		c.State = StateFailed
		c.FailedStage = stage
		c.Reason = serr.Reason()
		c.FinishedAt = &now
	})

	o.log.Log(logger.LogEntry{
		Level:   "error",
		Message: fmt.Sprintf("[pipeline] cycle=%s failed at %s", id, stage),
		Service: "pipeline",
		Error:   serr,
	})

	if o.observer != nil {
		o.observer.ObserveCycle(string(c.Source), string(StateFailed))
	}
	if o.notifier != nil {
		details := fmt.Sprintf("Cycle %s (%s) failed at stage %s: %s", id, c.Source, stage, serr.Reason())
		o.notify(context.WithoutCancel(ctx), id, cause, details)
	}
	return c, serr
}

// notify не держит ни запрос, ни слот цикла; Shutdown дожидается отправки.
func (o *Orchestrator) notify(ctx context.Context, id string, cause error, details string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		if err := o.notifier.Notify(ctx, id, cause, details); err != nil {
			o.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: fmt.Sprintf("[pipeline] cycle=%s failure notification not sent", id),
				Service: "pipeline",
				Error:   err,
			})
		}
	}()
}

func (o *Orchestrator) observe(stage State, start time.Time, err error) {
	if o.observer != nil {
		o.observer.ObserveStage(string(stage), time.Since(start), err)
	}
}

func (o *Orchestrator) logInfo(id, msg string) {
	o.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("[pipeline] cycle=%s %s", id, msg),
		Service: "pipeline",
	})
}
