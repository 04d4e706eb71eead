package error_notificator

import (
	"context"
	"fmt"

	"github.com/Vovarama1992/go-utils/logger"
)

// Service пишет отказ в лог и, если настроен Telegram, пересылает его админу.
type Service struct {
	infra Notificator
	log   *logger.ZapLogger
}

func NewService(infra Notificator, log *logger.ZapLogger) *Service {
	return &Service{infra: infra, log: log}
}

func (s *Service) Notify(ctx context.Context, cycleID string, err error, details string) error {
	s.log.Log(logger.LogEntry{
		Level:   "warn",
		Message: fmt.Sprintf("[error_notificator] cycle=%s %s", cycleID, details),
		Service: "error_notificator",
		Error:   err,
	})
	if s.infra == nil {
		return nil
	}
	return s.infra.Notify(ctx, cycleID, err, details)
}
