// Package alerting notifies operators about gateway events such as
// partial bulk-close failures and terminal connection loss.
package alerting

import (
	"context"
	"fmt"
	"strings"
)

// Severity represents the alert severity level.
type Severity int

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning is for warning messages.
	SeverityWarning
	// SeverityHigh is for high priority alerts.
	SeverityHigh
	// SeverityCritical is for critical alerts requiring immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Emoji returns an emoji for the severity level.
func (s Severity) Emoji() string {
	switch s {
	case SeverityInfo:
		return "ℹ️"
	case SeverityWarning:
		return "⚠️"
	case SeverityHigh:
		return "🔴"
	case SeverityCritical:
		return "🚨"
	default:
		return "❓"
	}
}

// Alerter defines the interface for sending alerts.
type Alerter interface {
	// Alert sends an alert with the given severity and message.
	Alert(ctx context.Context, severity Severity, message string, fields ...any) error
	// Name returns the name of the alerter.
	Name() string
}

// eachField calls fn for every key/value pair in fields. Pairs whose key is
// not a string and a trailing odd value are skipped.
func eachField(fields []any, fn func(key string, value any)) {
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			fn(key, fields[i+1])
		}
	}
}

// FormatFields renders fields one per line for chat channels.
func FormatFields(fields ...any) string {
	var b strings.Builder
	eachField(fields, func(key string, value any) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s: %v", key, value)
	})
	return b.String()
}

// AlertEvent represents a pre-defined alert event type.
type AlertEvent string

const (
	// EventBulkClosePartialFailure is sent when some closes of a bulk close failed.
	EventBulkClosePartialFailure AlertEvent = "bulk_close_partial_failure"
	// EventBulkCloseFailed is sent when every close of a bulk close failed.
	EventBulkCloseFailed AlertEvent = "bulk_close_failed"
	// EventOrderRejected is sent when the terminal rejects an order.
	EventOrderRejected AlertEvent = "order_rejected"
	// EventTerminalUnavailable is sent when the terminal cannot be initialized.
	EventTerminalUnavailable AlertEvent = "terminal_unavailable"
	// EventConnectionLost is sent when connection is lost.
	EventConnectionLost AlertEvent = "connection_lost"
	// EventConnectionRestored is sent when connection is restored.
	EventConnectionRestored AlertEvent = "connection_restored"
	// EventGatewayStarted is sent when the gateway starts.
	EventGatewayStarted AlertEvent = "gateway_started"
	// EventGatewayStopped is sent when the gateway stops.
	EventGatewayStopped AlertEvent = "gateway_stopped"
)

// Events lists every event the gateway raises.
func Events() []AlertEvent {
	return []AlertEvent{
		EventBulkClosePartialFailure,
		EventBulkCloseFailed,
		EventOrderRejected,
		EventTerminalUnavailable,
		EventConnectionLost,
		EventConnectionRestored,
		EventGatewayStarted,
		EventGatewayStopped,
	}
}

// IsKnownEvent reports whether name is one of Events.
func IsKnownEvent(name string) bool {
	for _, e := range Events() {
		if string(e) == name {
			return true
		}
	}
	return false
}

// EventSeverity returns the default severity for an event.
func EventSeverity(event AlertEvent) Severity {
	switch event {
	case EventBulkCloseFailed:
		return SeverityCritical
	case EventBulkClosePartialFailure, EventTerminalUnavailable:
		return SeverityHigh
	case EventOrderRejected, EventConnectionLost:
		return SeverityWarning
	case EventConnectionRestored, EventGatewayStarted, EventGatewayStopped:
		return SeverityInfo
	default:
		return SeverityInfo
	}
}
