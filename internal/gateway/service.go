// Package gateway implements the trading operations exposed over HTTP:
// position enumeration, bulk and single closes, market orders, SL/TP
// changes, market data and history lookups.
//
// Every operation runs inside terminal.Session.Do, so multi-step work such as
// a bulk close holds the session lock from enumeration to the last order.
package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/alerting"
	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// OrderDefaults are applied to orders whose request omits them.
type OrderDefaults struct {
	Deviation  int
	Magic      int64
	Comment    string
	FillPolicy types.FillPolicy
}

// DefaultOrderDefaults returns deviation 20, magic 0, empty comment and IOC.
func DefaultOrderDefaults() OrderDefaults {
	return OrderDefaults{
		Deviation:  20,
		Magic:      0,
		Comment:    "",
		FillPolicy: types.FillIOC,
	}
}

// Recorder receives business metrics.
type Recorder interface {
	RecordOrder(symbol, side, retcode string)
	RecordBulkClose(succeeded, failed int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOrder(string, string, string) {}
func (nopRecorder) RecordBulkClose(int, int)           {}

// Service executes gateway operations against a terminal session.
type Service struct {
	session  *terminal.Session
	defaults OrderDefaults
	logger   *zap.Logger
	recorder Recorder
	notifier *alerting.Notifier
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithNotifier sets the alert notifier.
func WithNotifier(n *alerting.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithDefaults overrides the order defaults.
func WithDefaults(d OrderDefaults) Option {
	return func(s *Service) {
		s.defaults = d
	}
}

// WithClock sets the time source used for default history windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a service bound to session.
func NewService(session *terminal.Session, opts ...Option) *Service {
	s := &Service{
		session:  session,
		defaults: DefaultOrderDefaults(),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the order defaults in effect.
func (s *Service) Defaults() OrderDefaults {
	return s.defaults
}

// do runs fn as one unit of work on the session and raises an alert when
// the terminal could not be reached.
func (s *Service) do(ctx context.Context, op string, fn func(ctx context.Context, t terminal.Terminal) error) error {
	err := s.session.Do(ctx, op, fn)
	if errors.Is(err, types.ErrTerminalUnavailable) {
		s.notifier.NotifyAsync(alerting.EventTerminalUnavailable, "terminal unavailable",
			"operation", op,
			"error", err.Error(),
		)
	}
	return err
}
