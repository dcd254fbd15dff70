// Package terminal defines the trading terminal contract and the session
// that serializes access to it.
package terminal

import (
	"context"
	"errors"
	"time"

	"github.com/tathienbao/terminal-gateway/internal/types"
)

// Common terminal errors.
var (
	ErrNotConnected   = errors.New("terminal not connected")
	ErrConnectionLost = errors.New("terminal connection lost")
)

// ConnectionState represents the terminal connection state.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal is the automation surface of a trading terminal.
//
// Lookups that find nothing return types.ErrNotFound. OrderSend may return
// a nil result with a nil error when the terminal produced no result; the
// caller consults LastError in that case.
//
// Implementations must be safe for concurrent use. The session gives up on
// a call at its timeout without waiting for the adapter to return, so the
// abandoned call can overlap the next one.
type Terminal interface {
	// Lifecycle
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	State() ConnectionState

	// Market data
	SymbolInfo(ctx context.Context, symbol string) (*types.SymbolInfo, error)
	SymbolInfoTick(ctx context.Context, symbol string) (*types.Tick, error)
	CopyRatesFromPos(ctx context.Context, symbol string, tf types.Timeframe, start, count int) ([]types.Bar, error)
	CopyRatesRange(ctx context.Context, symbol string, tf types.Timeframe, from, to time.Time) ([]types.Bar, error)

	// Positions and orders
	PositionsGet(ctx context.Context) ([]types.Position, error)
	PositionsTotal(ctx context.Context) (int, error)
	OrderSend(ctx context.Context, req types.TradeRequest) (*types.OrderResult, error)

	// History
	HistoryDealsGet(ctx context.Context, q types.HistoryQuery) ([]types.Deal, error)
	HistoryOrdersGet(ctx context.Context, q types.HistoryQuery) ([]types.HistoryOrder, error)
	LastError(ctx context.Context) (types.TerminalError, error)
}

// Observer receives session events for metrics and alerting.
type Observer interface {
	ObserveCall(method string, elapsed time.Duration, err error)
	ObserveConnection(connected bool)
}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) ObserveCall(method string, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.ObserveCall(method, elapsed, err)
	}
}

func (o Observers) ObserveConnection(connected bool) {
	for _, obs := range o {
		obs.ObserveConnection(connected)
	}
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, time.Duration, error) {}
func (nopObserver) ObserveConnection(bool)                   {}
