package alerting

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSendTimeout bounds asynchronous deliveries.
const DefaultSendTimeout = 10 * time.Second

// Notifier routes gateway events to an Alerter.
//
// Delivery is best effort: failures are logged, never returned. When an
// event list is configured only those events are delivered.
type Notifier struct {
	alerter Alerter
	logger  *zap.Logger
	events  map[AlertEvent]bool
	timeout time.Duration

	wg sync.WaitGroup
}

// NewNotifier creates a notifier. A nil alerter disables delivery.
func NewNotifier(alerter Alerter, logger *zap.Logger, events ...AlertEvent) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		alerter: alerter,
		logger:  logger,
		timeout: DefaultSendTimeout,
	}
	if len(events) > 0 {
		n.events = make(map[AlertEvent]bool, len(events))
		for _, e := range events {
			n.events[e] = true
		}
	}
	return n
}

// Enabled reports whether event would be delivered.
func (n *Notifier) Enabled(event AlertEvent) bool {
	if n == nil || n.alerter == nil {
		return false
	}
	return n.events == nil || n.events[event]
}

// Notify delivers event synchronously.
func (n *Notifier) Notify(ctx context.Context, event AlertEvent, message string, fields ...any) {
	if !n.Enabled(event) {
		return
	}
	fields = append([]any{"event", string(event)}, fields...)
	if err := n.alerter.Alert(ctx, EventSeverity(event), message, fields...); err != nil {
		n.logger.Warn("alert delivery failed",
			zap.String("event", string(event)),
			zap.String("alerter", n.alerter.Name()),
			zap.Error(err),
		)
	}
}

// NotifyAsync delivers event in the background so that callers holding
// locks are not blocked by slow channels.
func (n *Notifier) NotifyAsync(event AlertEvent, message string, fields ...any) {
	if !n.Enabled(event) {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		n.Notify(ctx, event, message, fields...)
	}()
}

// BulkClose reports a bulk close outcome. Nothing is sent when every close
// succeeded.
func (n *Notifier) BulkClose(ctx context.Context, s BulkCloseSummary) {
	event, ok := s.Event()
	if !ok {
		return
	}
	n.Notify(ctx, event, s.Message(), s.Fields()...)
}

// Wait blocks until background deliveries finish.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

// ParseEvents converts configured event names.
func ParseEvents(names []string) []AlertEvent {
	events := make([]AlertEvent, 0, len(names))
	for _, name := range names {
		events = append(events, AlertEvent(name))
	}
	return events
}
