package gateway

import (
	"context"
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/alerting"
	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// CloseAllParams selects the positions a bulk close targets and the order
// parameters shared by every close. Unset options fall back to the
// service defaults.
type CloseAllParams struct {
	Side       types.SideFilter
	Tag        optional.Option[int64]
	Deviation  optional.Option[int]
	FillPolicy optional.Option[types.FillPolicy]
	Comment    optional.Option[string]
}

func (p CloseAllParams) String() string {
	side := p.Side
	if side == "" {
		side = types.SideFilterAll
	}
	if p.Tag.IsSome() {
		return fmt.Sprintf("%s magic=%d", side, p.Tag.Unwrap())
	}
	return string(side)
}

// CloseResult is the outcome of closing one position. Side is the side of
// the closing order. Result is nil when the order never produced one.
type CloseResult struct {
	Ticket  int64              `json:"ticket"`
	Symbol  string             `json:"symbol"`
	Side    types.Side         `json:"type"`
	Volume  decimal.Decimal    `json:"volume"`
	Success bool               `json:"success"`
	Result  *types.OrderResult `json:"result,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// BulkCloseOutcome holds one CloseResult per targeted position, in
// enumeration order.
type BulkCloseOutcome struct {
	Results []CloseResult
}

// Succeeded returns the number of positions closed.
func (o *BulkCloseOutcome) Succeeded() int {
	n := 0
	for _, r := range o.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of positions that could not be closed.
func (o *BulkCloseOutcome) Failed() int {
	return len(o.Results) - o.Succeeded()
}

// HasFailures reports whether any close failed.
func (o *BulkCloseOutcome) HasFailures() bool {
	return o.Failed() > 0
}

// PartialFailure reports whether some, but not all, closes failed.
func (o *BulkCloseOutcome) PartialFailure() bool {
	return o.Failed() > 0 && o.Succeeded() > 0
}

// CloseAll closes every open position matching params.
//
// Positions are closed one at a time with an opposite-side market order for
// their full volume. A failed close is recorded and the loop moves on; only
// a failed enumeration aborts the call.
func (s *Service) CloseAll(ctx context.Context, params CloseAllParams) (*BulkCloseOutcome, error) {
	outcome := &BulkCloseOutcome{Results: []CloseResult{}}

	err := s.do(ctx, "close_all", func(ctx context.Context, t terminal.Terminal) error {
		positions, err := listPositions(ctx, t, params.Tag)
		if err != nil {
			return err
		}

		for _, p := range positions {
			if !params.Side.Matches(p.Side) {
				continue
			}
			outcome.Results = append(outcome.Results, s.closeOne(ctx, t, p, params))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("bulk close aborted", zap.Stringer("filter", params), zap.Error(err))
		return nil, err
	}

	succeeded, failed := outcome.Succeeded(), outcome.Failed()
	s.recorder.RecordBulkClose(succeeded, failed)

	fields := []zap.Field{
		zap.Stringer("filter", params),
		zap.Int("targeted", len(outcome.Results)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	}
	if failed > 0 {
		s.logger.Warn("bulk close finished with failures", fields...)
		s.notifier.BulkClose(ctx, summarize(params, outcome))
	} else {
		s.logger.Info("bulk close finished", fields...)
	}
	return outcome, nil
}

func (s *Service) closeOne(ctx context.Context, t terminal.Terminal, p types.Position, params CloseAllParams) CloseResult {
	closeSide := p.Side.Opposite()
	res := CloseResult{
		Ticket: p.Ticket,
		Symbol: p.Symbol,
		Side:   closeSide,
		Volume: p.Volume,
	}

	tick, err := t.SymbolInfoTick(ctx, p.Symbol)
	if err != nil {
		res.Error = fmt.Sprintf("tick %s: %v", p.Symbol, err)
		s.logClose(res)
		return res
	}

	req := types.TradeRequest{
		Action:     types.ActionDeal,
		Symbol:     p.Symbol,
		Volume:     p.Volume,
		Side:       closeSide,
		Price:      tick.ClosePrice(p.Side),
		Deviation:  takeOr(params.Deviation, s.defaults.Deviation),
		Magic:      p.Magic,
		Comment:    takeOr(params.Comment, s.defaults.Comment),
		FillPolicy: takeOr(params.FillPolicy, s.defaults.FillPolicy),
		Position:   p.Ticket,
	}

	result, err := t.OrderSend(ctx, req)
	switch {
	case err != nil:
		res.Error = err.Error()
	case result == nil:
		res.Error = noResult(ctx, t).Error()
	default:
		res.Result = result
		res.Success = result.Succeeded()
		if !res.Success {
			res.Error = fmt.Sprintf("%s: %s", result.Retcode, result.Retcode.Description())
		}
	}

	if result != nil {
		s.recorder.RecordOrder(p.Symbol, closeSide.String(), result.Retcode.String())
	}
	s.logClose(res)
	return res
}

func (s *Service) logClose(res CloseResult) {
	fields := []zap.Field{
		zap.Int64("ticket", res.Ticket),
		zap.String("symbol", res.Symbol),
		zap.Stringer("side", res.Side),
		zap.Stringer("volume", res.Volume),
	}
	if res.Success {
		s.logger.Info("position closed", append(fields, zap.Int64("deal", res.Result.Deal))...)
		return
	}
	s.logger.Warn("position close failed", append(fields, zap.String("error", res.Error))...)
}

func summarize(params CloseAllParams, o *BulkCloseOutcome) alerting.BulkCloseSummary {
	summary := alerting.BulkCloseSummary{
		Filter:    params.String(),
		Succeeded: o.Succeeded(),
		Failed:    o.Failed(),
	}
	for _, r := range o.Results {
		if !r.Success {
			summary.Failures = append(summary.Failures, alerting.FailedClose{
				Ticket: r.Ticket,
				Symbol: r.Symbol,
				Reason: r.Error,
			})
		}
	}
	return summary
}

func takeOr[T any](o optional.Option[T], fallback T) T {
	if o.IsSome() {
		return o.Unwrap()
	}
	return fallback
}
