package alerting

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleAlerter writes alerts to the log.
// Useful for development and testing.
type ConsoleAlerter struct {
	logger *zap.Logger
}

// NewConsoleAlerter creates a new console alerter.
func NewConsoleAlerter(logger *zap.Logger) *ConsoleAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleAlerter{logger: logger}
}

// Name returns the name of the alerter.
func (c *ConsoleAlerter) Name() string {
	return "console"
}

// Alert logs an alert.
func (c *ConsoleAlerter) Alert(ctx context.Context, severity Severity, message string, fields ...any) error {
	zfields := make([]zap.Field, 0, len(fields)/2+1)
	zfields = append(zfields, zap.String("severity", severity.String()))
	eachField(fields, func(key string, value any) {
		zfields = append(zfields, zap.Any(key, value))
	})

	switch severity {
	case SeverityCritical:
		c.logger.Error("[ALERT] "+message, zfields...)
	case SeverityHigh, SeverityWarning:
		c.logger.Warn("[ALERT] "+message, zfields...)
	default:
		c.logger.Info("[ALERT] "+message, zfields...)
	}

	return nil
}
