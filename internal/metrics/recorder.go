package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/tathienbao/terminal-gateway/internal/types"
)

// Recorder provides methods for recording metrics.
// It satisfies terminal.Observer and gateway.Recorder.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordOrder records an order metric.
func (r *Recorder) RecordOrder(symbol, side, retcode string) {
	OrdersTotal.WithLabelValues(symbol, side, retcode).Inc()
}

// RecordBulkClose records the outcome of a bulk close.
func (r *Recorder) RecordBulkClose(succeeded, failed int) {
	outcome := "success"
	switch {
	case succeeded == 0 && failed == 0:
		outcome = "empty"
	case failed > 0 && succeeded == 0:
		outcome = "failure"
	case failed > 0:
		outcome = "partial_failure"
	}
	BulkClosesTotal.WithLabelValues(outcome).Inc()
	PositionsClosedTotal.WithLabelValues("closed").Add(float64(succeeded))
	PositionsClosedTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordHTTPRequest records a served HTTP request.
func (r *Recorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError records an error.
func (r *Recorder) RecordError(kind string) {
	ErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveCall records a terminal call.
func (r *Recorder) ObserveCall(method string, elapsed time.Duration, err error) {
	TerminalCallsTotal.WithLabelValues(method, callOutcome(err)).Inc()
	TerminalCallDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveConnection records the terminal session state.
func (r *Recorder) ObserveConnection(connected bool) {
	if connected {
		TerminalConnected.Set(1)
	} else {
		TerminalConnected.Set(0)
	}
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// ErrorKind classifies err for the errors_total metric.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrTerminalUnavailable):
		return "terminal_unavailable"
	case errors.Is(err, types.ErrNoResult):
		return "no_result"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// Timer is a helper for measuring latency.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed duration.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
