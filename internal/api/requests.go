package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/tathienbao/terminal-gateway/internal/gateway"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// orderOptions are the optional order fields shared by order requests.
type orderOptions struct {
	Deviation   *int              `json:"deviation" validate:"omitempty,min=0"`
	Magic       *int64            `json:"magic"`
	Comment     *string           `json:"comment"`
	TypeFilling *types.FillPolicy `json:"type_filling"`
}

func (o orderOptions) toOptions() gateway.OrderOptions {
	return gateway.OrderOptions{
		Deviation:  opt(o.Deviation),
		Magic:      opt(o.Magic),
		Comment:    opt(o.Comment),
		FillPolicy: opt(o.TypeFilling),
	}
}

type closeAllRequest struct {
	OrderType   types.SideFilter  `json:"order_type"`
	Magic       *int64            `json:"magic"`
	TypeFilling *types.FillPolicy `json:"type_filling"`
	Deviation   *int              `json:"deviation" validate:"omitempty,min=0"`
	Comment     *string           `json:"comment"`
}

func (r closeAllRequest) toParams() gateway.CloseAllParams {
	side := r.OrderType
	if side == "" {
		side = types.SideFilterAll
	}
	return gateway.CloseAllParams{
		Side:       side,
		Tag:        opt(r.Magic),
		Deviation:  opt(r.Deviation),
		FillPolicy: opt(r.TypeFilling),
		Comment:    opt(r.Comment),
	}
}

type closePositionRequest struct {
	Ticket *int64           `json:"ticket" validate:"required"`
	Symbol string           `json:"symbol" validate:"required"`
	Type   *types.Side      `json:"type" validate:"required"`
	Volume *decimal.Decimal `json:"volume" validate:"required"`
	orderOptions
}

func (r closePositionRequest) toParams() gateway.ClosePositionParams {
	return gateway.ClosePositionParams{
		Ticket:       *r.Ticket,
		Symbol:       r.Symbol,
		Side:         *r.Type,
		Volume:       *r.Volume,
		OrderOptions: r.orderOptions.toOptions(),
	}
}

type marketOrderRequest struct {
	Symbol    string           `json:"symbol" validate:"required"`
	Volume    *decimal.Decimal `json:"volume" validate:"required"`
	OrderType *types.Side      `json:"order_type" validate:"required"`
	SL        *decimal.Decimal `json:"sl"`
	TP        *decimal.Decimal `json:"tp"`
	orderOptions
}

func (r marketOrderRequest) toParams() gateway.MarketOrderParams {
	return gateway.MarketOrderParams{
		Symbol:       r.Symbol,
		Volume:       *r.Volume,
		Side:         *r.OrderType,
		StopLoss:     deref(r.SL),
		TakeProfit:   deref(r.TP),
		OrderOptions: r.orderOptions.toOptions(),
	}
}

type modifySLTPRequest struct {
	Ticket     *int64           `json:"ticket" validate:"required"`
	StopLoss   *decimal.Decimal `json:"stop_loss" validate:"required"`
	TakeProfit *decimal.Decimal `json:"take_profit" validate:"required"`
}

type fetchPosQuery struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" validate:"required"`
	Bars      string `query:"bars" validate:"required"`
}

type fetchRangeQuery struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe" validate:"required"`
	FromDate  string `query:"from_date" validate:"required"`
	ToDate    string `query:"to_date" validate:"required"`
	Timezone  string `query:"timezone"`
}

type ticketQuery struct {
	Ticket string `query:"ticket" validate:"required"`
}

func opt[T any](v *T) optional.Option[T] {
	if v == nil {
		return optional.None[T]()
	}
	return optional.Some(*v)
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(q url.Values, name string) (optional.Option[int64], error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return optional.None[int64](), nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return optional.None[int64](), fmt.Errorf("%w: %s must be an integer, got %q", types.ErrInvalidArgument, name, raw)
	}
	return optional.Some(v), nil
}

// requireInt64 parses a query parameter already checked for presence.
func requireInt64(q url.Values, name string) (int64, error) {
	v, err := queryInt64(q, name)
	if err != nil {
		return 0, err
	}
	return v.Unwrap(), nil
}
