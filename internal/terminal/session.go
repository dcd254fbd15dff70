package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/types"
)

// DefaultCallTimeout bounds a single terminal call.
const DefaultCallTimeout = 10 * time.Second

// Session owns the terminal for the lifetime of the process.
//
// All work goes through Do, which holds the session lock for the whole unit
// so that multi-step operations never interleave with other callers' units.
// Every terminal call made inside Do is bounded by the call timeout; a call
// that times out or loses the connection fails with
// types.ErrTerminalUnavailable and forces re-initialization on the next Do.
type Session struct {
	term     Terminal
	timeout  time.Duration
	logger   *zap.Logger
	observer Observer

	mu          sync.Mutex
	initialized bool
	closed      bool
}

// NewSession creates a session around term.
func NewSession(term Terminal, timeout time.Duration, logger *zap.Logger, observer Observer) *Session {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Session{
		term:     term,
		timeout:  timeout,
		logger:   logger,
		observer: observer,
	}
}

// Open initializes the terminal eagerly.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureInitialized(ctx)
}

// Close shuts the terminal down. The session cannot be used afterwards.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.initialized = false

	err := s.term.Shutdown(ctx)
	s.observer.ObserveConnection(false)
	if err != nil {
		return fmt.Errorf("shutdown terminal: %w", err)
	}
	s.logger.Info("terminal session closed")
	return nil
}

// Initialized reports whether the terminal was initialized and has not
// failed since.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Check is a health check: it fails when the terminal is not connected.
// It does not take the session lock.
func (s *Session) Check(ctx context.Context) error {
	if state := s.term.State(); state != StateConnected {
		return fmt.Errorf("%w: state %s", types.ErrTerminalUnavailable, state)
	}
	return nil
}

// Do runs fn while holding the session lock. No other unit of work starts
// until fn returns, but a terminal call abandoned at its timeout may still
// be running in the adapter; see Terminal.
func (s *Session) Do(ctx context.Context, op string, fn func(ctx context.Context, t Terminal) error) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "terminal.session."+op)
	defer span.Finish()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: session closed", types.ErrTerminalUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.ensureInitialized(ctx); err != nil {
		ext.LogError(span, err)
		return err
	}

	err := fn(ctx, &boundTerminal{s: s})
	if err != nil {
		ext.LogError(span, err)
	}
	return err
}

// ensureInitialized must be called with mu held.
func (s *Session) ensureInitialized(ctx context.Context) error {
	if s.initialized {
		return nil
	}

	_, err := invoke(s, ctx, "initialize", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.term.Initialize(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		if !errors.Is(err, types.ErrTerminalUnavailable) {
			err = fmt.Errorf("%w: initialize: %v", types.ErrTerminalUnavailable, err)
		}
		s.logger.Warn("terminal initialization failed", zap.Error(err))
		return err
	}

	s.initialized = true
	s.observer.ObserveConnection(true)
	s.logger.Info("terminal initialized")
	return nil
}

// markLost must be called with mu held.
func (s *Session) markLost(method string, cause error) {
	if s.initialized {
		s.logger.Warn("terminal unavailable, session reset",
			zap.String("method", method),
			zap.Error(cause),
		)
		s.observer.ObserveConnection(false)
	}
	s.initialized = false
}

// invoke runs one terminal call under the call timeout. The call runs in its
// own goroutine so an adapter that ignores its context cannot hold the
// session past the deadline.
//
// Only the call timeout and connection errors mark the terminal lost. When
// the caller's own context ends first, the caller's error is returned and
// the session stays initialized.
func invoke[T any](s *Session, ctx context.Context, method string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}

	span, parent := opentracing.StartSpanFromContext(ctx, "terminal."+method)
	defer span.Finish()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	s.observer.ObserveCall(method, time.Since(start), out.err)

	if out.err == nil {
		return out.v, nil
	}
	ext.LogError(span, out.err)

	if err := parent.Err(); err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}
	if isUnavailable(out.err) {
		s.markLost(method, out.err)
		return zero, fmt.Errorf("%w: %s: %v", types.ErrTerminalUnavailable, method, out.err)
	}
	return out.v, out.err
}

func isUnavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrNotConnected) ||
		errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, types.ErrTerminalUnavailable)
}

// boundTerminal is the view of the terminal handed to Do callbacks.
type boundTerminal struct {
	s *Session
}

func (b *boundTerminal) Initialize(ctx context.Context) error {
	return b.s.ensureInitialized(ctx)
}

func (b *boundTerminal) Shutdown(ctx context.Context) error {
	return errors.New("shutdown is owned by the session")
}

func (b *boundTerminal) State() ConnectionState {
	return b.s.term.State()
}

func (b *boundTerminal) SymbolInfo(ctx context.Context, symbol string) (*types.SymbolInfo, error) {
	return invoke(b.s, ctx, "symbol_info", func(ctx context.Context) (*types.SymbolInfo, error) {
		return b.s.term.SymbolInfo(ctx, symbol)
	})
}

func (b *boundTerminal) SymbolInfoTick(ctx context.Context, symbol string) (*types.Tick, error) {
	return invoke(b.s, ctx, "symbol_info_tick", func(ctx context.Context) (*types.Tick, error) {
		return b.s.term.SymbolInfoTick(ctx, symbol)
	})
}

func (b *boundTerminal) CopyRatesFromPos(ctx context.Context, symbol string, tf types.Timeframe, start, count int) ([]types.Bar, error) {
	return invoke(b.s, ctx, "copy_rates_from_pos", func(ctx context.Context) ([]types.Bar, error) {
		return b.s.term.CopyRatesFromPos(ctx, symbol, tf, start, count)
	})
}

func (b *boundTerminal) CopyRatesRange(ctx context.Context, symbol string, tf types.Timeframe, from, to time.Time) ([]types.Bar, error) {
	return invoke(b.s, ctx, "copy_rates_range", func(ctx context.Context) ([]types.Bar, error) {
		return b.s.term.CopyRatesRange(ctx, symbol, tf, from, to)
	})
}

func (b *boundTerminal) PositionsGet(ctx context.Context) ([]types.Position, error) {
	return invoke(b.s, ctx, "positions_get", b.s.term.PositionsGet)
}

func (b *boundTerminal) PositionsTotal(ctx context.Context) (int, error) {
	return invoke(b.s, ctx, "positions_total", b.s.term.PositionsTotal)
}

func (b *boundTerminal) OrderSend(ctx context.Context, req types.TradeRequest) (*types.OrderResult, error) {
	return invoke(b.s, ctx, "order_send", func(ctx context.Context) (*types.OrderResult, error) {
		return b.s.term.OrderSend(ctx, req)
	})
}

func (b *boundTerminal) HistoryDealsGet(ctx context.Context, q types.HistoryQuery) ([]types.Deal, error) {
	return invoke(b.s, ctx, "history_deals_get", func(ctx context.Context) ([]types.Deal, error) {
		return b.s.term.HistoryDealsGet(ctx, q)
	})
}

func (b *boundTerminal) HistoryOrdersGet(ctx context.Context, q types.HistoryQuery) ([]types.HistoryOrder, error) {
	return invoke(b.s, ctx, "history_orders_get", func(ctx context.Context) ([]types.HistoryOrder, error) {
		return b.s.term.HistoryOrdersGet(ctx, q)
	})
}

func (b *boundTerminal) LastError(ctx context.Context) (types.TerminalError, error) {
	return invoke(b.s, ctx, "last_error", b.s.term.LastError)
}

var _ Terminal = (*boundTerminal)(nil)
