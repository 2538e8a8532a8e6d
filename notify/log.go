package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/room4-2/FrontDesk/domain"
)

// Log writes notifications to the log instead of delivering them. It is the
// notifier used when no SMS account is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("notify")}
}

func (l *Log) Send(_ context.Context, n domain.Notification) bool {
	if !n.Consent || n.Phone == "" {
		return false
	}
	l.logger.Info("SMS disabled, logging notification",
		zap.String("employee", n.EmployeeName),
		zap.String("body", n.Body))
	return true
}
