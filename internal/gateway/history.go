package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// historyEpoch is the start of the default deal lookup window.
var historyEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Deal entry directions.
const (
	dealEntryIn  = 0
	dealEntryOut = 1
)

// DealQuery looks up the deals of one position.
type DealQuery struct {
	Ticket   int64
	Timezone string
	From     optional.Option[string]
	To       optional.Option[string]
}

// DealSummary aggregates the deals of one position. Times are expressed in
// the requested timezone.
type DealSummary struct {
	Ticket     int64           `json:"ticket"`
	Symbol     string          `json:"symbol"`
	Type       string          `json:"type"`
	Volume     decimal.Decimal `json:"volume"`
	OpenTime   time.Time       `json:"open_time"`
	OpenPrice  decimal.Decimal `json:"open_price"`
	Closed     bool            `json:"closed"`
	CloseTime  time.Time       `json:"close_time"`
	ClosePrice decimal.Decimal `json:"close_price"`
	Profit     decimal.Decimal `json:"profit"`
	Commission decimal.Decimal `json:"commission"`
	Swap       decimal.Decimal `json:"swap"`
	Fee        decimal.Decimal `json:"fee"`
	Magic      int64           `json:"magic"`
	Comment    string          `json:"comment"`
	Deals      []types.Deal    `json:"deals"`
}

// DealFromTicket summarizes the deals of the position identified by
// q.Ticket. Without an explicit window every deal since 2000 is searched.
func (s *Service) DealFromTicket(ctx context.Context, q DealQuery) (*DealSummary, error) {
	if q.Ticket <= 0 {
		return nil, invalidFields([]string{"ticket"})
	}
	loc, err := LoadLocation(q.Timezone)
	if err != nil {
		return nil, err
	}

	from, to := historyEpoch, s.now().Add(24*time.Hour)
	if q.From.IsSome() || q.To.IsSome() {
		r, err := ParseTimeRange(takeOr(q.From, historyEpoch.Format(time.RFC3339)),
			takeOr(q.To, to.Format(time.RFC3339)), q.Timezone)
		if err != nil {
			return nil, err
		}
		from, to = r.From, r.To
	}

	var deals []types.Deal
	err = s.do(ctx, "deal_from_ticket", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		deals, err = t.HistoryDealsGet(ctx, types.HistoryQuery{
			From:     from.UTC(),
			To:       to.UTC(),
			Position: optional.Some(q.Ticket),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(deals) == 0 {
		return nil, fmt.Errorf("%w: no deals for position %d", types.ErrNotFound, q.Ticket)
	}
	return summarizeDeals(q.Ticket, deals, loc), nil
}

func summarizeDeals(ticket int64, deals []types.Deal, loc *time.Location) *DealSummary {
	sum := &DealSummary{Ticket: ticket, Deals: make([]types.Deal, len(deals))}
	for i, d := range deals {
		d.Time = d.Time.In(loc)
		sum.Deals[i] = d

		sum.Profit = sum.Profit.Add(d.Profit)
		sum.Commission = sum.Commission.Add(d.Commission)
		sum.Swap = sum.Swap.Add(d.Swap)
		sum.Fee = sum.Fee.Add(d.Fee)

		switch d.Entry {
		case dealEntryIn:
			if sum.OpenTime.IsZero() {
				sum.Symbol = d.Symbol
				sum.Type = types.Side(d.Type).String()
				sum.Volume = d.Volume
				sum.OpenTime = d.Time
				sum.OpenPrice = d.Price
				sum.Magic = d.Magic
				sum.Comment = d.Comment
			}
		default:
			sum.Closed = true
			sum.CloseTime = d.Time
			sum.ClosePrice = d.Price
		}
	}
	if sum.Symbol == "" {
		sum.Symbol = deals[0].Symbol
		sum.Magic = deals[0].Magic
	}
	return sum
}

// OrderFromTicket returns the history order with the given ticket.
func (s *Service) OrderFromTicket(ctx context.Context, ticket int64) (*types.HistoryOrder, error) {
	orders, err := s.HistoryOrders(ctx, ticket)
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// HistoryDeals returns the deals between two unix timestamps, optionally
// restricted to one position.
func (s *Service) HistoryDeals(ctx context.Context, from, to int64, position optional.Option[int64]) ([]types.Deal, error) {
	q := types.HistoryQuery{Position: position}
	if position.IsNone() {
		if from <= 0 || to <= 0 {
			return nil, invalidFields([]string{"from_timestamp", "to_timestamp"})
		}
		if from > to {
			return nil, fmt.Errorf("%w: from_timestamp %d is after to_timestamp %d", types.ErrInvalidArgument, from, to)
		}
		q.From, q.To = time.Unix(from, 0).UTC(), time.Unix(to, 0).UTC()
	}

	var deals []types.Deal
	err := s.do(ctx, "history_deals_get", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		deals, err = t.HistoryDealsGet(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(deals) == 0 {
		return nil, fmt.Errorf("%w: no deals in history", types.ErrNotFound)
	}
	return deals, nil
}

// HistoryOrders returns the history orders with the given ticket.
func (s *Service) HistoryOrders(ctx context.Context, ticket int64) ([]types.HistoryOrder, error) {
	if ticket <= 0 {
		return nil, invalidFields([]string{"ticket"})
	}

	var orders []types.HistoryOrder
	err := s.do(ctx, "history_orders_get", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		orders, err = t.HistoryOrdersGet(ctx, types.HistoryQuery{Ticket: optional.Some(ticket)})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: order %d", types.ErrNotFound, ticket)
	}
	return orders, nil
}

// LastError returns the terminal's last error.
func (s *Service) LastError(ctx context.Context) (types.TerminalError, error) {
	var lastErr types.TerminalError
	err := s.do(ctx, "last_error", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		lastErr, err = t.LastError(ctx)
		return err
	})
	return lastErr, err
}
