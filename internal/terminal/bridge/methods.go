package bridge

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// Initialize connects if needed and asks the bridge to attach to the terminal.
func (c *Client) Initialize(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	var ok bool
	found, err := c.call(ctx, methodInitialize, nil, &ok)
	if err != nil {
		return err
	}
	if !found || !ok {
		return pkgerrors.Wrap(types.ErrTerminalUnavailable, "terminal refused initialization")
	}
	return nil
}

// Shutdown detaches the bridge from the terminal and closes the client.
func (c *Client) Shutdown(ctx context.Context) error {
	if c.IsConnected() {
		if _, err := c.call(ctx, methodShutdown, nil, nil); err != nil {
			c.logger.Warn("terminal shutdown request failed", zap.Error(err))
		}
	}
	return c.Close()
}

func (c *Client) SymbolInfo(ctx context.Context, symbol string) (*types.SymbolInfo, error) {
	var info types.SymbolInfo
	found, err := c.call(ctx, methodSymbolInfo, symbolParams{Symbol: symbol}, &info)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.Wrapf(types.ErrNotFound, "symbol %s", symbol)
	}
	return &info, nil
}

func (c *Client) SymbolInfoTick(ctx context.Context, symbol string) (*types.Tick, error) {
	var tick wireTick
	found, err := c.call(ctx, methodSymbolInfoTick, symbolParams{Symbol: symbol}, &tick)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.Wrapf(types.ErrNotFound, "tick for %s", symbol)
	}
	out := tick.decode()
	if out.Symbol == "" {
		out.Symbol = symbol
	}
	return out, nil
}

func (c *Client) CopyRatesFromPos(ctx context.Context, symbol string, tf types.Timeframe, start, count int) ([]types.Bar, error) {
	var bars []wireBar
	params := ratesFromPosParams{Symbol: symbol, Timeframe: tf, Start: start, Count: count}
	if _, err := c.call(ctx, methodCopyRatesFromPos, params, &bars); err != nil {
		return nil, err
	}
	return decodeAll(bars, wireBar.decode), nil
}

func (c *Client) CopyRatesRange(ctx context.Context, symbol string, tf types.Timeframe, from, to time.Time) ([]types.Bar, error) {
	var bars []wireBar
	params := ratesRangeParams{Symbol: symbol, Timeframe: tf, From: from.Unix(), To: to.Unix()}
	if _, err := c.call(ctx, methodCopyRatesRange, params, &bars); err != nil {
		return nil, err
	}
	return decodeAll(bars, wireBar.decode), nil
}

func (c *Client) PositionsGet(ctx context.Context) ([]types.Position, error) {
	var positions []wirePosition
	if _, err := c.call(ctx, methodPositionsGet, nil, &positions); err != nil {
		return nil, err
	}
	return decodeAll(positions, wirePosition.decode), nil
}

func (c *Client) PositionsTotal(ctx context.Context) (int, error) {
	var total int
	if _, err := c.call(ctx, methodPositionsTotal, nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// OrderSend returns a nil result without error when the terminal produced
// none.
func (c *Client) OrderSend(ctx context.Context, req types.TradeRequest) (*types.OrderResult, error) {
	var res wireOrderResult
	found, err := c.call(ctx, methodOrderSend, toWireRequest(req), &res)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	out := res.decode()
	if res.Request == nil {
		out.Request = req
	}
	return out, nil
}

func (c *Client) HistoryDealsGet(ctx context.Context, q types.HistoryQuery) ([]types.Deal, error) {
	var deals []wireDeal
	if _, err := c.call(ctx, methodHistoryDealsGet, toHistoryParams(q), &deals); err != nil {
		return nil, err
	}
	return decodeAll(deals, wireDeal.decode), nil
}

func (c *Client) HistoryOrdersGet(ctx context.Context, q types.HistoryQuery) ([]types.HistoryOrder, error) {
	var orders []wireOrder
	if _, err := c.call(ctx, methodHistoryOrdersGet, toHistoryParams(q), &orders); err != nil {
		return nil, err
	}
	return decodeAll(orders, wireOrder.decode), nil
}

func (c *Client) LastError(ctx context.Context) (types.TerminalError, error) {
	var te types.TerminalError
	if _, err := c.call(ctx, methodLastError, nil, &te); err != nil {
		return types.TerminalError{}, err
	}
	return te, nil
}

func toHistoryParams(q types.HistoryQuery) historyParams {
	var p historyParams
	if !q.From.IsZero() {
		from := q.From.Unix()
		p.From = &from
	}
	if !q.To.IsZero() {
		to := q.To.Unix()
		p.To = &to
	}
	if v, err := q.Ticket.Take(); err == nil {
		p.Ticket = &v
	}
	if v, err := q.Position.Take(); err == nil {
		p.Position = &v
	}
	return p
}

func decodeAll[W, T any](in []W, decode func(W) T) []T {
	out := make([]T, 0, len(in))
	for _, w := range in {
		out = append(out, decode(w))
	}
	return out
}

var _ terminal.Terminal = (*Client)(nil)
