package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrIngestion   = errors.New("recording could not be stored")
	ErrRecognition = errors.New("speech could not be recognized")
	ErrGeneration  = errors.New("response generation failed")
	ErrSynthesis   = errors.New("speech synthesis failed")
	ErrBusy        = errors.New("another cycle is in progress")

	errNoSpeech = errors.New("no speech recognized")
)

// StageError — отказ конкретной стадии цикла. errors.Is работает и по Kind, и по исходной ошибке.
type StageError struct {
	Stage     State
	Kind      error
	Retryable bool
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool { return target == e.Kind }

// Reason — безопасный для клиента текст без деталей провайдера.
func (e *StageError) Reason() string {
	if e.Retryable {
		return e.Kind.Error() + " (timed out, retry later)"
	}
	return e.Kind.Error()
}
