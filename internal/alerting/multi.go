package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultChannelTimeout bounds one delivery to one channel.
const DefaultChannelTimeout = 5 * time.Second

// ChannelError is a failed delivery to a named channel.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("alert channel %s: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// MultiAlerter fans every alert out to the configured channels in parallel.
// A slow or failing channel does not hold back the others.
type MultiAlerter struct {
	mu       sync.RWMutex
	channels []Alerter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewMultiAlerter creates a fan-out over channels.
func NewMultiAlerter(logger *zap.Logger, channels ...Alerter) *MultiAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiAlerter{
		channels: channels,
		timeout:  DefaultChannelTimeout,
		logger:   logger,
	}
}

func (m *MultiAlerter) Name() string {
	return "multi"
}

// AddAlerter appends a channel.
func (m *MultiAlerter) AddAlerter(channel Alerter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channel)
}

// SetChannelTimeout changes the per-channel delivery bound.
func (m *MultiAlerter) SetChannelTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
}

// Channels returns the channel names in delivery order.
func (m *MultiAlerter) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Alert delivers to every channel and waits for all of them. The returned
// error joins one *ChannelError per failed channel.
func (m *MultiAlerter) Alert(ctx context.Context, severity Severity, message string, fields ...any) error {
	m.mu.RLock()
	channels := append([]Alerter(nil), m.channels...)
	timeout := m.timeout
	m.mu.RUnlock()

	errs := make([]error, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if err := deliver(cctx, ch, severity, message, fields); err != nil {
				m.logger.Error("alert channel failed",
					zap.String("channel", ch.Name()),
					zap.Stringer("severity", severity),
					zap.Error(err),
				)
				errs[i] = &ChannelError{Channel: ch.Name(), Err: err}
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// deliver returns when ch is done or ctx ends, whichever comes first.
func deliver(ctx context.Context, ch Alerter, severity Severity, message string, fields []any) error {
	done := make(chan error, 1)
	go func() {
		done <- ch.Alert(ctx, severity, message, fields...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
