package alerting

import (
	"context"
	"sync"
)

// Delivery is one alert as received by a channel.
type Delivery struct {
	Event    AlertEvent
	Severity Severity
	Message  string
	Fields   map[string]any
}

// CaptureAlerter keeps every delivery in memory. Tests use it in place of a
// real channel; Err makes every delivery fail after being captured.
type CaptureAlerter struct {
	Err error

	mu         sync.Mutex
	deliveries []Delivery
}

// NewCaptureAlerter returns an empty capture channel.
func NewCaptureAlerter() *CaptureAlerter {
	return &CaptureAlerter{}
}

func (c *CaptureAlerter) Name() string {
	return "capture"
}

// Alert records the delivery. The event is taken from the "event" field the
// Notifier prepends.
func (c *CaptureAlerter) Alert(_ context.Context, severity Severity, message string, fields ...any) error {
	d := Delivery{Severity: severity, Message: message, Fields: make(map[string]any)}
	eachField(fields, func(key string, value any) {
		if key == "event" {
			if name, ok := value.(string); ok {
				d.Event = AlertEvent(name)
				return
			}
		}
		d.Fields[key] = value
	})

	c.mu.Lock()
	c.deliveries = append(c.deliveries, d)
	c.mu.Unlock()
	return c.Err
}

// Deliveries returns a copy of everything received so far.
func (c *CaptureAlerter) Deliveries() []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Delivery(nil), c.deliveries...)
}

// Len returns the number of deliveries.
func (c *CaptureAlerter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

// Last returns the most recent delivery.
func (c *CaptureAlerter) Last() (Delivery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.deliveries) == 0 {
		return Delivery{}, false
	}
	return c.deliveries[len(c.deliveries)-1], true
}

// Of returns the deliveries raised for event, oldest first.
func (c *CaptureAlerter) Of(event AlertEvent) []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Delivery
	for _, d := range c.deliveries {
		if d.Event == event {
			out = append(out, d)
		}
	}
	return out
}
