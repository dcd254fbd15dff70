package paper

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/types"
)

// OrderSend executes market deals and SL/TP changes immediately.
func (t *Terminal) OrderSend(ctx context.Context, req types.TradeRequest) (*types.OrderResult, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if req.Position != 0 {
		if f, ok := t.failures[req.Position]; ok {
			switch {
			case f.err != nil:
				return nil, f.err
			case f.noResult:
				t.lastError = types.TerminalError{Code: -2, Description: "Terminal: Invalid params"}
				return nil, nil
			default:
				return t.result(req, f.retcode, "Request rejected"), nil
			}
		}
	}

	switch req.Action {
	case types.ActionSLTP:
		return t.modifyStops(req), nil
	case types.ActionDeal:
		return t.executeDeal(req), nil
	default:
		return t.result(req, types.RetcodeInvalid, fmt.Sprintf("Unsupported action %s", req.Action)), nil
	}
}

// modifyStops must be called with mu held.
func (t *Terminal) modifyStops(req types.TradeRequest) *types.OrderResult {
	p := t.findPosition(req.Position)
	if p == nil {
		return t.result(req, types.RetcodePositionClosed, "Position doesn't exist")
	}
	if p.StopLoss.Equal(req.StopLoss) && p.TakeProfit.Equal(req.TakeProfit) {
		return t.result(req, types.RetcodeNoChanges, "No changes")
	}
	p.StopLoss = req.StopLoss
	p.TakeProfit = req.TakeProfit

	t.logger.Debug("stops modified",
		zap.Int64("ticket", p.Ticket),
		zap.Stringer("sl", p.StopLoss),
		zap.Stringer("tp", p.TakeProfit),
	)
	return t.result(req, types.RetcodeDone, "Request executed")
}

// executeDeal must be called with mu held.
func (t *Terminal) executeDeal(req types.TradeRequest) *types.OrderResult {
	s, ok := t.symbols[req.Symbol]
	if !ok {
		return t.result(req, types.RetcodeInvalid, fmt.Sprintf("Unknown symbol %s", req.Symbol))
	}
	if !req.Volume.IsPositive() {
		return t.result(req, types.RetcodeInvalidVolume, "Invalid volume")
	}
	if !req.Side.Valid() {
		return t.result(req, types.RetcodeInvalidOrder, "Invalid order type")
	}

	price := s.tick.OpenPrice(req.Side)
	now := t.now().UTC()

	var target *types.Position
	if req.Position != 0 {
		target = t.findPosition(req.Position)
		if target == nil {
			return t.result(req, types.RetcodePositionClosed, "Position doesn't exist")
		}
		if target.Symbol != req.Symbol || target.Side != req.Side.Opposite() {
			return t.result(req, types.RetcodeInvalid, "Invalid request")
		}
		if req.Volume.GreaterThan(target.Volume) {
			return t.result(req, types.RetcodeInvalidVolume, "Invalid volume")
		}
	}

	orderTicket := t.allocTicket()
	dealTicket := t.allocTicket()

	deal := types.Deal{
		Ticket:  dealTicket,
		Order:   orderTicket,
		Time:    now,
		Type:    int(req.Side),
		Magic:   req.Magic,
		Volume:  req.Volume,
		Price:   price,
		Symbol:  req.Symbol,
		Comment: req.Comment,
	}

	if target != nil {
		deal.Entry = dealEntryOut
		deal.PositionID = target.Identifier
		deal.Profit = t.pnl(target.Side, target.PriceOpen, price, req.Volume)

		target.Volume = target.Volume.Sub(req.Volume)
		if target.Volume.IsZero() {
			t.removePosition(target.Ticket)
		} else {
			t.markToMarket(target, s.tick)
		}
	} else {
		deal.Entry = dealEntryIn
		deal.PositionID = orderTicket
		p := &types.Position{
			Ticket:     orderTicket,
			Time:       now,
			Symbol:     req.Symbol,
			Side:       req.Side,
			Volume:     req.Volume,
			PriceOpen:  price,
			StopLoss:   req.StopLoss,
			TakeProfit: req.TakeProfit,
			Magic:      req.Magic,
			Identifier: orderTicket,
			Comment:    req.Comment,
		}
		t.markToMarket(p, s.tick)
		t.positions = append(t.positions, p)
	}

	t.deals = append(t.deals, deal)
	t.orders = append(t.orders, types.HistoryOrder{
		Ticket:        orderTicket,
		TimeSetup:     now,
		TimeDone:      now,
		Type:          int(req.Side),
		State:         orderStateFilled,
		Magic:         req.Magic,
		PositionID:    deal.PositionID,
		VolumeInitial: req.Volume,
		PriceOpen:     price,
		StopLoss:      req.StopLoss,
		TakeProfit:    req.TakeProfit,
		PriceCurrent:  price,
		Symbol:        req.Symbol,
		Comment:       req.Comment,
	})

	res := t.result(req, types.RetcodeDone, "Request executed")
	res.Deal = dealTicket
	res.Order = orderTicket
	res.Volume = req.Volume
	res.Price = price
	res.Bid = s.tick.Bid
	res.Ask = s.tick.Ask

	t.logger.Info("paper deal executed",
		zap.String("symbol", req.Symbol),
		zap.Stringer("side", req.Side),
		zap.Stringer("volume", req.Volume),
		zap.Stringer("price", price),
		zap.Int64("position", deal.PositionID),
	)
	return res
}

// result must be called with mu held.
func (t *Terminal) result(req types.TradeRequest, code types.ReturnCode, comment string) *types.OrderResult {
	t.lastError = types.TerminalError{Code: 1, Description: "Success"}
	return &types.OrderResult{
		Retcode:   code,
		Volume:    decimal.Zero,
		Comment:   comment,
		RequestID: t.allocTicket(),
		Request:   req,
	}
}

func (t *Terminal) findPosition(ticket int64) *types.Position {
	for _, p := range t.positions {
		if p.Ticket == ticket {
			return p
		}
	}
	return nil
}

func (t *Terminal) removePosition(ticket int64) {
	for i, p := range t.positions {
		if p.Ticket == ticket {
			t.positions = append(t.positions[:i], t.positions[i+1:]...)
			return
		}
	}
}
