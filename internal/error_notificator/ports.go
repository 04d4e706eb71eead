package error_notificator

import "context"

type Notificator interface {
	// Notify — отправляет сообщение об упавшем цикле админу
	Notify(ctx context.Context, cycleID string, err error, details string) error
}
