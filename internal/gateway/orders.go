package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/alerting"
	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// OrderError reports an order the terminal answered with a non-success
// return code.
type OrderError struct {
	Result *types.OrderResult
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order not completed: %s (%s)", e.Result.Retcode, e.Result.Retcode.Description())
}

// OrderOptions override the order defaults for one request.
type OrderOptions struct {
	Deviation  optional.Option[int]
	Magic      optional.Option[int64]
	Comment    optional.Option[string]
	FillPolicy optional.Option[types.FillPolicy]
}

// ClosePositionParams identifies the position to close. Side is the side of
// the position being closed.
type ClosePositionParams struct {
	Ticket int64
	Symbol string
	Side   types.Side
	Volume decimal.Decimal
	OrderOptions
}

// MarketOrderParams describes a new market order.
type MarketOrderParams struct {
	Symbol     string
	Volume     decimal.Decimal
	Side       types.Side
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	OrderOptions
}

// ClosePosition closes volume of the given position with an opposite-side
// market order.
func (s *Service) ClosePosition(ctx context.Context, p ClosePositionParams) (*types.OrderResult, error) {
	var missing []string
	if p.Ticket <= 0 {
		missing = append(missing, "ticket")
	}
	if p.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if !p.Side.Valid() {
		missing = append(missing, "type")
	}
	if !p.Volume.IsPositive() {
		missing = append(missing, "volume")
	}
	if len(missing) > 0 {
		return nil, invalidFields(missing)
	}

	var result *types.OrderResult
	err := s.do(ctx, "close_position", func(ctx context.Context, t terminal.Terminal) error {
		tick, err := t.SymbolInfoTick(ctx, p.Symbol)
		if err != nil {
			return err
		}
		req := s.applyDefaults(types.TradeRequest{
			Action:   types.ActionDeal,
			Symbol:   p.Symbol,
			Volume:   p.Volume,
			Side:     p.Side.Opposite(),
			Price:    tick.ClosePrice(p.Side),
			Position: p.Ticket,
		}, p.OrderOptions)

		result, err = s.submit(ctx, t, req)
		return err
	})
	return result, err
}

// SendMarketOrder opens a position at the current market price.
func (s *Service) SendMarketOrder(ctx context.Context, p MarketOrderParams) (*types.OrderResult, error) {
	var missing []string
	if p.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if !p.Volume.IsPositive() {
		missing = append(missing, "volume")
	}
	if !p.Side.Valid() {
		missing = append(missing, "order_type")
	}
	if len(missing) > 0 {
		return nil, invalidFields(missing)
	}

	var result *types.OrderResult
	err := s.do(ctx, "send_market_order", func(ctx context.Context, t terminal.Terminal) error {
		tick, err := t.SymbolInfoTick(ctx, p.Symbol)
		if err != nil {
			return err
		}
		req := s.applyDefaults(types.TradeRequest{
			Action:     types.ActionDeal,
			Symbol:     p.Symbol,
			Volume:     p.Volume,
			Side:       p.Side,
			Price:      tick.OpenPrice(p.Side),
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
		}, p.OrderOptions)

		result, err = s.submit(ctx, t, req)
		return err
	})
	return result, err
}

// ModifySLTP changes the stop-loss and take-profit of an open position.
func (s *Service) ModifySLTP(ctx context.Context, ticket int64, sl, tp decimal.Decimal) (*types.OrderResult, error) {
	if ticket <= 0 {
		return nil, invalidFields([]string{"ticket"})
	}
	if sl.IsNegative() || tp.IsNegative() {
		return nil, fmt.Errorf("%w: stop_loss and take_profit must not be negative", types.ErrInvalidArgument)
	}

	var result *types.OrderResult
	err := s.do(ctx, "modify_sl_tp", func(ctx context.Context, t terminal.Terminal) error {
		positions, err := listPositions(ctx, t, optional.None[int64]())
		if err != nil {
			return err
		}
		var pos *types.Position
		for i := range positions {
			if positions[i].Ticket == ticket {
				pos = &positions[i]
				break
			}
		}
		if pos == nil {
			return fmt.Errorf("%w: position %d", types.ErrNotFound, ticket)
		}

		result, err = s.submit(ctx, t, types.TradeRequest{
			Action:     types.ActionSLTP,
			Symbol:     pos.Symbol,
			StopLoss:   sl,
			TakeProfit: tp,
			Magic:      pos.Magic,
			Position:   ticket,
		})
		return err
	})
	return result, err
}

// SendOrder forwards req unchanged.
func (s *Service) SendOrder(ctx context.Context, req types.TradeRequest) (*types.OrderResult, error) {
	if req.Symbol == "" && req.Position == 0 {
		return nil, invalidFields([]string{"symbol"})
	}

	var result *types.OrderResult
	err := s.do(ctx, "order_send", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		result, err = s.submit(ctx, t, req)
		return err
	})
	return result, err
}

// submit sends req and classifies the outcome.
func (s *Service) submit(ctx context.Context, t terminal.Terminal, req types.TradeRequest) (*types.OrderResult, error) {
	logger := s.logger.With(
		zap.Stringer("action", req.Action),
		zap.String("symbol", req.Symbol),
		zap.Stringer("side", req.Side),
		zap.Stringer("volume", req.Volume),
		zap.Int64("position", req.Position),
	)

	result, err := t.OrderSend(ctx, req)
	if err != nil {
		logger.Error("order send failed", zap.Error(err))
		return nil, err
	}
	if result == nil {
		err := noResult(ctx, t)
		logger.Error("order send returned no result", zap.Error(err))
		return nil, err
	}

	s.recorder.RecordOrder(req.Symbol, req.Side.String(), result.Retcode.String())
	if !result.Succeeded() {
		logger.Warn("order rejected",
			zap.Stringer("retcode", result.Retcode),
			zap.String("comment", result.Comment),
		)
		s.notifier.NotifyAsync(alerting.EventOrderRejected, "order rejected by terminal",
			"symbol", req.Symbol,
			"position", req.Position,
			"retcode", result.Retcode.String(),
			"comment", result.Comment,
		)
		return result, &OrderError{Result: result}
	}

	logger.Info("order executed",
		zap.Int64("order", result.Order),
		zap.Int64("deal", result.Deal),
		zap.Stringer("price", result.Price),
	)
	return result, nil
}

func (s *Service) applyDefaults(req types.TradeRequest, o OrderOptions) types.TradeRequest {
	req.Deviation = takeOr(o.Deviation, s.defaults.Deviation)
	req.Magic = takeOr(o.Magic, s.defaults.Magic)
	req.Comment = takeOr(o.Comment, s.defaults.Comment)
	req.FillPolicy = takeOr(o.FillPolicy, s.defaults.FillPolicy)
	return req
}

// noResult builds the error for an order that produced no result, with the
// terminal's last error when it can be read.
func noResult(ctx context.Context, t terminal.Terminal) error {
	lastErr, err := t.LastError(ctx)
	if err != nil {
		return fmt.Errorf("%w: last_error unavailable: %v", types.ErrNoResult, err)
	}
	return fmt.Errorf("%w: last_error %s", types.ErrNoResult, lastErr)
}

func invalidFields(fields []string) error {
	return fmt.Errorf("%w: missing required fields: %s", types.ErrInvalidArgument, strings.Join(fields, ", "))
}

// AsOrderError returns the OrderError in err's chain, if any.
func AsOrderError(err error) (*OrderError, bool) {
	var oe *OrderError
	ok := errors.As(err, &oe)
	return oe, ok
}
