package speech

import "context"

// SpeechRecognizer — внешний голос → текст. Язык фиксируется в конфиге клиента.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// SpeechSynthesizer — внешний текст → голос.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Flag — флаг готовности озвученного ответа.
type Flag interface {
	Set(ready bool)
}
