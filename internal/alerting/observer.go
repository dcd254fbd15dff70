package alerting

import (
	"sync"
	"time"
)

// ConnectionObserver turns terminal session events into connection alerts.
// It satisfies terminal.Observer.
type ConnectionObserver struct {
	notifier *Notifier

	mu        sync.Mutex
	connected bool
	seen      bool
	lostAt    time.Time
	now       func() time.Time
}

// NewConnectionObserver creates an observer that reports through n.
func NewConnectionObserver(n *Notifier) *ConnectionObserver {
	return &ConnectionObserver{notifier: n, now: time.Now}
}

// ObserveCall is a no-op; per-call outcomes are covered by metrics.
func (o *ConnectionObserver) ObserveCall(string, time.Duration, error) {}

// ObserveConnection alerts on transitions between connected and lost.
// The first successful initialization is not reported.
func (o *ConnectionObserver) ObserveConnection(connected bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.seen && o.connected == connected {
		return
	}
	wasSeen, wasConnected := o.seen, o.connected
	o.seen, o.connected = true, connected

	switch {
	case !connected && wasConnected:
		o.lostAt = o.now()
		o.notifier.NotifyAsync(EventConnectionLost, "terminal connection lost")
	case connected && wasSeen && !wasConnected && !o.lostAt.IsZero():
		down := o.now().Sub(o.lostAt).Round(time.Second)
		o.notifier.NotifyAsync(EventConnectionRestored, "terminal connection restored", "downtime", down.String())
	}
}
