package alerting

import (
	"strings"
	"testing"
)

func TestBulkCloseSummary_Event(t *testing.T) {
	tests := []struct {
		name      string
		summary   BulkCloseSummary
		wantEvent AlertEvent
		wantOK    bool
	}{
		{"nothing targeted", BulkCloseSummary{}, "", false},
		{"all closed", BulkCloseSummary{Succeeded: 3}, "", false},
		{"partial failure", BulkCloseSummary{Succeeded: 2, Failed: 1}, EventBulkClosePartialFailure, true},
		{"all failed", BulkCloseSummary{Failed: 2}, EventBulkCloseFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := tt.summary.Event()
			if ok != tt.wantOK || event != tt.wantEvent {
				t.Errorf("Event() = (%q, %v), want (%q, %v)", event, ok, tt.wantEvent, tt.wantOK)
			}
		})
	}
}

func TestBulkCloseSummary_Fields(t *testing.T) {
	s := BulkCloseSummary{
		Filter:    "buy magic=100",
		Succeeded: 2,
		Failed:    1,
		Failures:  []FailedClose{{Ticket: 7, Symbol: "EURUSD", Reason: "TRADE_RETCODE_REQUOTE"}},
	}

	if s.Targeted() != 3 {
		t.Errorf("Targeted() = %d, want 3", s.Targeted())
	}
	if got := s.Message(); got != "bulk close: 1 of 3 positions failed to close" {
		t.Errorf("Message() = %q", got)
	}

	formatted := FormatFields(s.Fields()...)
	for _, want := range []string{"• filter: buy magic=100", "• failed: 1", "#7 EURUSD (TRADE_RETCODE_REQUOTE)"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("fields %q missing %q", formatted, want)
		}
	}
}
