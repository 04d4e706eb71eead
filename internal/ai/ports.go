package ai

import "context"

// Params — политика генерации, одинаковая для всех провайдеров.
type Params struct {
	MaxTokens   int
	Temperature float32
	// RepetitionPenalty в шкале HF: 1.0 — без штрафа.
	RepetitionPenalty float32
}

// TextGenerator — внешний генератор текста. Обе исторические ветки
// (обычный completion и одношаговый чат) живут за этим интерфейсом.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string, p Params) (string, error)
}
