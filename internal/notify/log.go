package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes notifications to the structured log.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log notifier.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Name implements Notifier.
func (*Log) Name() string { return "log" }

// Notify implements Notifier.
func (l *Log) Notify(_ context.Context, n Notification) error {
	l.logger.Info("new candidate",
		zap.String("conference", n.Conference),
		zap.Int("year", n.Year),
		zap.String("role", n.Role),
		zap.String("url", n.URL),
		zap.Float64("discovery_score", n.DiscoveryScore),
	)
	return nil
}
