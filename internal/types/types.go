// Package types defines shared types used across the gateway.
package types

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Side represents the direction of a position or order.
// Values match the terminal's POSITION_TYPE_* / ORDER_TYPE_* numbering.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the opposite side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is buy or sell.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// ParseSide parses "buy"/"sell" or the terminal's 0/1.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy", "0":
		return SideBuy, nil
	case "sell", "1":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidArgument, v)
	}
}

// MarshalJSON encodes the side as "buy" or "sell".
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON accepts either a string or an integer.
func (s *Side) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSide(unquote(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SideFilter selects positions by side for bulk operations.
type SideFilter string

const (
	SideFilterAll  SideFilter = "all"
	SideFilterBuy  SideFilter = "buy"
	SideFilterSell SideFilter = "sell"
)

// ParseSideFilter parses a filter value. An empty value means all.
func ParseSideFilter(v string) (SideFilter, error) {
	switch SideFilter(strings.ToLower(strings.TrimSpace(v))) {
	case "", SideFilterAll:
		return SideFilterAll, nil
	case SideFilterBuy, "0":
		return SideFilterBuy, nil
	case SideFilterSell, "1":
		return SideFilterSell, nil
	default:
		return "", fmt.Errorf("%w: order_type must be buy, sell or all, got %q", ErrInvalidArgument, v)
	}
}

// UnmarshalJSON accepts a filter name or the terminal's side integers.
func (f *SideFilter) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*f = SideFilterAll
		return nil
	}
	parsed, err := ParseSideFilter(unquote(data))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Matches reports whether a position on the given side passes the filter.
func (f SideFilter) Matches(side Side) bool {
	switch f {
	case SideFilterAll, "":
		return true
	case SideFilterBuy:
		return side == SideBuy
	case SideFilterSell:
		return side == SideSell
	default:
		return false
	}
}

// FillPolicy is the order execution constraint forwarded to the terminal.
type FillPolicy int

const (
	FillFOK FillPolicy = iota
	FillIOC
	FillReturn
)

func (f FillPolicy) String() string {
	switch f {
	case FillFOK:
		return "fok"
	case FillIOC:
		return "ioc"
	case FillReturn:
		return "return"
	default:
		return "unknown"
	}
}

// ParseFillPolicy parses "fok"/"ioc"/"return" or 0/1/2.
func ParseFillPolicy(v string) (FillPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "fok", "0", "order_filling_fok":
		return FillFOK, nil
	case "ioc", "1", "order_filling_ioc":
		return FillIOC, nil
	case "return", "2", "order_filling_return":
		return FillReturn, nil
	default:
		return 0, fmt.Errorf("%w: unknown fill policy %q", ErrInvalidArgument, v)
	}
}

// MarshalJSON encodes the fill policy by name.
func (f FillPolicy) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(f.String())), nil
}

// UnmarshalJSON accepts either a name or an integer.
func (f *FillPolicy) UnmarshalJSON(data []byte) error {
	parsed, err := ParseFillPolicy(unquote(data))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// TradeAction mirrors the terminal's TRADE_ACTION_* values.
type TradeAction int

const (
	ActionDeal    TradeAction = 1
	ActionPending TradeAction = 5
	ActionSLTP    TradeAction = 6
	ActionModify  TradeAction = 7
	ActionRemove  TradeAction = 8
	ActionCloseBy TradeAction = 10
)

func (a TradeAction) String() string {
	switch a {
	case ActionDeal:
		return "deal"
	case ActionPending:
		return "pending"
	case ActionSLTP:
		return "sltp"
	case ActionModify:
		return "modify"
	case ActionRemove:
		return "remove"
	case ActionCloseBy:
		return "close_by"
	default:
		return "unknown"
	}
}

// Position represents an open position held by the terminal.
type Position struct {
	Ticket       int64           `json:"ticket"`
	Time         time.Time       `json:"time"`
	Symbol       string          `json:"symbol"`
	Side         Side            `json:"type"`
	Volume       decimal.Decimal `json:"volume"`
	PriceOpen    decimal.Decimal `json:"price_open"`
	StopLoss     decimal.Decimal `json:"sl"`
	TakeProfit   decimal.Decimal `json:"tp"`
	PriceCurrent decimal.Decimal `json:"price_current"`
	Swap         decimal.Decimal `json:"swap"`
	Profit       decimal.Decimal `json:"profit"`
	Magic        int64           `json:"magic"`
	Identifier   int64           `json:"identifier"`
	Comment      string          `json:"comment"`
}

// TradeRequest is an order submitted to the terminal.
type TradeRequest struct {
	Action     TradeAction     `json:"action"`
	Symbol     string          `json:"symbol"`
	Volume     decimal.Decimal `json:"volume"`
	Side       Side            `json:"type"`
	Price      decimal.Decimal `json:"price"`
	StopLoss   decimal.Decimal `json:"sl"`
	TakeProfit decimal.Decimal `json:"tp"`
	Deviation  int             `json:"deviation"`
	Magic      int64           `json:"magic"`
	Comment    string          `json:"comment"`
	FillPolicy FillPolicy      `json:"type_filling"`
	Position   int64           `json:"position,omitempty"`
}

// OrderResult is the outcome of a single order submission.
type OrderResult struct {
	Retcode   ReturnCode      `json:"retcode"`
	Deal      int64           `json:"deal"`
	Order     int64           `json:"order"`
	Volume    decimal.Decimal `json:"volume"`
	Price     decimal.Decimal `json:"price"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Comment   string          `json:"comment"`
	RequestID int64           `json:"request_id"`
	Request   TradeRequest    `json:"request"`
}

// Succeeded reports whether the terminal accepted the order.
func (r *OrderResult) Succeeded() bool {
	return r != nil && r.Retcode.IsSuccess()
}

// SymbolInfo holds instrument properties and the latest quote.
type SymbolInfo struct {
	Name       string          `json:"symbol"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	Spread     int             `json:"spread"`
	Volume     int64           `json:"volume"`
	Digits     int             `json:"digits"`
	Point      decimal.Decimal `json:"point"`
	VolumeMin  decimal.Decimal `json:"volume_min"`
	VolumeMax  decimal.Decimal `json:"volume_max"`
	VolumeStep decimal.Decimal `json:"volume_step"`
}

// Tick is the last quote for a symbol.
type Tick struct {
	Symbol string          `json:"symbol"`
	Time   time.Time       `json:"time"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Last   decimal.Decimal `json:"last"`
	Volume int64           `json:"volume"`
}

// ClosePrice returns the price at which a position on side would be closed.
func (t Tick) ClosePrice(side Side) decimal.Decimal {
	if side == SideBuy {
		return t.Bid
	}
	return t.Ask
}

// OpenPrice returns the price at which a new order on side would fill.
func (t Tick) OpenPrice(side Side) decimal.Decimal {
	if side == SideBuy {
		return t.Ask
	}
	return t.Bid
}

// Deal is an executed deal from the terminal's history.
type Deal struct {
	Ticket     int64           `json:"ticket"`
	Order      int64           `json:"order"`
	Time       time.Time       `json:"time"`
	Type       int             `json:"type"`
	Entry      int             `json:"entry"`
	Magic      int64           `json:"magic"`
	PositionID int64           `json:"position_id"`
	Reason     int             `json:"reason"`
	Volume     decimal.Decimal `json:"volume"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Swap       decimal.Decimal `json:"swap"`
	Profit     decimal.Decimal `json:"profit"`
	Fee        decimal.Decimal `json:"fee"`
	Symbol     string          `json:"symbol"`
	Comment    string          `json:"comment"`
	ExternalID string          `json:"external_id"`
}

// HistoryOrder is an order from the terminal's history.
type HistoryOrder struct {
	Ticket        int64           `json:"ticket"`
	TimeSetup     time.Time       `json:"time_setup"`
	TimeDone      time.Time       `json:"time_done"`
	Type          int             `json:"type"`
	State         int             `json:"state"`
	Magic         int64           `json:"magic"`
	PositionID    int64           `json:"position_id"`
	VolumeInitial decimal.Decimal `json:"volume_initial"`
	VolumeCurrent decimal.Decimal `json:"volume_current"`
	PriceOpen     decimal.Decimal `json:"price_open"`
	StopLoss      decimal.Decimal `json:"sl"`
	TakeProfit    decimal.Decimal `json:"tp"`
	PriceCurrent  decimal.Decimal `json:"price_current"`
	Symbol        string          `json:"symbol"`
	Comment       string          `json:"comment"`
}

// Bar is an OHLC bar.
type Bar struct {
	Time       time.Time       `json:"time"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	TickVolume int64           `json:"tick_volume"`
	Spread     int             `json:"spread"`
	RealVolume int64           `json:"real_volume"`
}

// TerminalError is the terminal's last error as reported by last_error().
type TerminalError struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

func (e TerminalError) String() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Description)
}

// HistoryQuery selects deals or orders from the terminal's history.
type HistoryQuery struct {
	From     time.Time
	To       time.Time
	Ticket   optional.Option[int64]
	Position optional.Option[int64]
}

func unquote(data []byte) string {
	data = bytes.TrimSpace(data)
	if s, err := strconv.Unquote(string(data)); err == nil {
		return s
	}
	return string(data)
}
