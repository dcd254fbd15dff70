package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSeverity(t *testing.T) {
	tests := []struct {
		severity  Severity
		wantName  string
		wantEmoji string
	}{
		{SeverityInfo, "INFO", "ℹ️"},
		{SeverityWarning, "WARNING", "⚠️"},
		{SeverityHigh, "HIGH", "🔴"},
		{SeverityCritical, "CRITICAL", "🚨"},
		{Severity(99), "UNKNOWN", "❓"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.wantName {
				t.Errorf("String() = %v, want %v", got, tt.wantName)
			}
			if got := tt.severity.Emoji(); got != tt.wantEmoji {
				t.Errorf("Emoji() = %v, want %v", got, tt.wantEmoji)
			}
		})
	}
}

func TestFormatFields_GatewayEvents(t *testing.T) {
	tests := []struct {
		name   string
		fields []any
		want   string
	}{
		{"none", nil, ""},
		{"unavailable", []any{"operation", "close_all", "error", "timeout"}, "• operation: close_all\n• error: timeout"},
		{"ticket", []any{"ticket", int64(42)}, "• ticket: 42"},
		{"dangling value", []any{"operation", "positions", "orphan"}, "• operation: positions"},
		{"non-string key", []any{7, "x", "retcode", 10006}, "• retcode: 10006"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFields(tt.fields...); got != tt.want {
				t.Errorf("FormatFields() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventSeverity(t *testing.T) {
	want := map[AlertEvent]Severity{
		EventBulkCloseFailed:         SeverityCritical,
		EventBulkClosePartialFailure: SeverityHigh,
		EventTerminalUnavailable:     SeverityHigh,
		EventOrderRejected:           SeverityWarning,
		EventConnectionLost:          SeverityWarning,
		EventConnectionRestored:      SeverityInfo,
		EventGatewayStarted:          SeverityInfo,
		EventGatewayStopped:          SeverityInfo,
	}
	if len(want) != len(Events()) {
		t.Fatalf("severity table covers %d events, gateway raises %d", len(want), len(Events()))
	}
	for _, e := range Events() {
		if got := EventSeverity(e); got != want[e] {
			t.Errorf("EventSeverity(%s) = %v, want %v", e, got, want[e])
		}
		if !IsKnownEvent(string(e)) {
			t.Errorf("IsKnownEvent(%q) = false", e)
		}
	}
	if IsKnownEvent("daily_summary") {
		t.Error("daily_summary is not a gateway event")
	}
	if got := EventSeverity("daily_summary"); got != SeverityInfo {
		t.Errorf("unknown event severity = %v, want INFO", got)
	}
}

func TestCaptureAlerter_BulkCloseSummary(t *testing.T) {
	capture := NewCaptureAlerter()
	n := NewNotifier(capture, nil)

	n.BulkClose(context.Background(), BulkCloseSummary{
		Filter:    "sell magic=7",
		Succeeded: 1,
		Failed:    2,
		Failures: []FailedClose{
			{Ticket: 11, Symbol: "EURUSD", Reason: "TRADE_RETCODE_REQUOTE"},
			{Ticket: 12, Symbol: "GBPUSD", Reason: "terminal unavailable"},
		},
	})

	d, ok := capture.Last()
	if !ok {
		t.Fatal("expected a delivery")
	}
	if d.Event != EventBulkClosePartialFailure || d.Severity != SeverityHigh {
		t.Errorf("delivery = %s/%v, want bulk_close_partial_failure/HIGH", d.Event, d.Severity)
	}
	if _, ok := d.Fields["event"]; ok {
		t.Error("event must not be repeated in Fields")
	}
	if d.Fields["filter"] != "sell magic=7" || d.Fields["succeeded"] != 1 || d.Fields["failed"] != 2 {
		t.Errorf("unexpected fields %v", d.Fields)
	}
	failures, _ := d.Fields["failures"].(string)
	for _, want := range []string{"#11 EURUSD (TRADE_RETCODE_REQUOTE)", "#12 GBPUSD (terminal unavailable)"} {
		if !strings.Contains(failures, want) {
			t.Errorf("failures %q missing %q", failures, want)
		}
	}
	if got := len(capture.Of(EventBulkCloseFailed)); got != 0 {
		t.Errorf("bulk_close_failed deliveries = %d, want 0", got)
	}
}

func TestConsoleAlerter(t *testing.T) {
	alerter := NewConsoleAlerter(nil)
	if alerter.Name() != "console" {
		t.Errorf("expected name 'console', got %q", alerter.Name())
	}
	for _, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityCritical} {
		if err := alerter.Alert(context.Background(), sev, "order rejected by terminal", "ticket", 5); err != nil {
			t.Errorf("Alert(%v) error = %v", sev, err)
		}
	}
}

func TestMultiAlerter_FanOut(t *testing.T) {
	ops := NewCaptureAlerter()
	multi := NewMultiAlerter(nil, ops, NewConsoleAlerter(nil))
	desk := NewCaptureAlerter()
	multi.AddAlerter(desk)

	if got := strings.Join(multi.Channels(), ","); got != "capture,console,capture" {
		t.Errorf("Channels() = %s", got)
	}

	n := NewNotifier(multi, nil)
	n.Notify(context.Background(), EventGatewayStarted, "gateway started", "mode", "paper")

	for name, ch := range map[string]*CaptureAlerter{"ops": ops, "desk": desk} {
		got := ch.Of(EventGatewayStarted)
		if len(got) != 1 || got[0].Fields["mode"] != "paper" {
			t.Errorf("%s: deliveries = %+v", name, ch.Deliveries())
		}
	}
}

func TestMultiAlerter_ChannelFailure(t *testing.T) {
	refused := errors.New("chat not found")
	broken := NewCaptureAlerter()
	broken.Err = refused
	healthy := NewCaptureAlerter()

	multi := NewMultiAlerter(nil, broken, healthy)
	err := multi.Alert(context.Background(), SeverityHigh, "terminal unavailable")
	if !errors.Is(err, refused) {
		t.Fatalf("expected channel error, got %v", err)
	}
	var chErr *ChannelError
	if !errors.As(err, &chErr) || chErr.Channel != "capture" {
		t.Errorf("expected *ChannelError for capture, got %v", err)
	}
	if healthy.Len() != 1 {
		t.Errorf("healthy channel deliveries = %d, want 1", healthy.Len())
	}
}

// stuckAlerter never returns until released.
type stuckAlerter struct {
	release chan struct{}
}

func (s *stuckAlerter) Name() string { return "stuck" }

func (s *stuckAlerter) Alert(context.Context, Severity, string, ...any) error {
	<-s.release
	return nil
}

func TestMultiAlerter_ChannelTimeout(t *testing.T) {
	stuck := &stuckAlerter{release: make(chan struct{})}
	defer close(stuck.release)
	fast := NewCaptureAlerter()

	multi := NewMultiAlerter(nil, stuck, fast)
	multi.SetChannelTimeout(30 * time.Millisecond)

	start := time.Now()
	err := multi.Alert(context.Background(), SeverityWarning, "terminal connection lost")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Alert took %v with a stuck channel", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	if fast.Len() != 1 {
		t.Errorf("fast channel deliveries = %d, want 1", fast.Len())
	}
}

func TestMultiAlerter_NoChannels(t *testing.T) {
	if err := NewMultiAlerter(nil).Alert(context.Background(), SeverityInfo, "gateway stopped"); err != nil {
		t.Errorf("empty fan-out error = %v", err)
	}
}
