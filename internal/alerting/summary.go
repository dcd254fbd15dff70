package alerting

import (
	"fmt"
	"strings"
)

// FailedClose describes one position a bulk close could not close.
type FailedClose struct {
	Ticket int64
	Symbol string
	Reason string
}

// BulkCloseSummary contains the outcome of one bulk close for reporting.
type BulkCloseSummary struct {
	Filter    string
	Succeeded int
	Failed    int
	Failures  []FailedClose
}

// Targeted returns the number of positions the bulk close attempted.
func (s BulkCloseSummary) Targeted() int {
	return s.Succeeded + s.Failed
}

// Event returns the alert event for the summary, or false if nothing failed.
func (s BulkCloseSummary) Event() (AlertEvent, bool) {
	switch {
	case s.Failed == 0:
		return "", false
	case s.Succeeded == 0:
		return EventBulkCloseFailed, true
	default:
		return EventBulkClosePartialFailure, true
	}
}

// Message returns a one-line description.
func (s BulkCloseSummary) Message() string {
	return fmt.Sprintf("bulk close: %d of %d positions failed to close", s.Failed, s.Targeted())
}

// Fields returns the summary as alert fields.
func (s BulkCloseSummary) Fields() []any {
	fields := []any{
		"filter", s.Filter,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
	}
	if len(s.Failures) > 0 {
		tickets := make([]string, 0, len(s.Failures))
		for _, f := range s.Failures {
			tickets = append(tickets, fmt.Sprintf("#%d %s (%s)", f.Ticket, f.Symbol, f.Reason))
		}
		fields = append(fields, "failures", strings.Join(tickets, "; "))
	}
	return fields
}
