package notifier

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers one rendered message. Email/LINE/SMS backends plug in here.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier writes messages to the service log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, recipient, subject, body string) error {
	n.log.Info("notify",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
