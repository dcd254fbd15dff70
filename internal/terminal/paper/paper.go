// Package paper provides an in-memory trading terminal for paper mode and
// tests.
package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// Deal entry and type values as reported by the terminal.
const (
	dealEntryIn  = 0
	dealEntryOut = 1

	orderStateFilled = 4
)

// Config holds paper terminal configuration.
type Config struct {
	// ContractSize converts price moves per lot into profit.
	ContractSize decimal.Decimal
	// Quotes seeds symbols with an initial bid/ask.
	Quotes map[string]Quote
}

// Quote is a bid/ask pair.
type Quote struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

// DefaultConfig returns default paper terminal config.
func DefaultConfig() Config {
	return Config{
		ContractSize: decimal.NewFromInt(100000),
		Quotes: map[string]Quote{
			"EURUSD": {Bid: decimal.RequireFromString("1.08500"), Ask: decimal.RequireFromString("1.08512")},
			"GBPUSD": {Bid: decimal.RequireFromString("1.27100"), Ask: decimal.RequireFromString("1.27115")},
			"USDJPY": {Bid: decimal.RequireFromString("149.500"), Ask: decimal.RequireFromString("149.512")},
		},
	}
}

type symbolState struct {
	info types.SymbolInfo
	tick types.Tick
	bars map[types.Timeframe][]types.Bar
}

// failure is an injected outcome for orders that reference a ticket.
type failure struct {
	retcode  types.ReturnCode
	err      error
	noResult bool
}

// Terminal implements terminal.Terminal in memory. Orders fill immediately
// at the current quote.
type Terminal struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	state atomic.Int32

	mu         sync.Mutex
	symbols    map[string]*symbolState
	positions  []*types.Position
	deals      []types.Deal
	orders     []types.HistoryOrder
	nextTicket int64
	lastError  types.TerminalError
	failures   map[int64]failure
	initErr    error
}

// New creates a new paper terminal.
func New(cfg Config, logger *zap.Logger) *Terminal {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContractSize.IsZero() {
		cfg.ContractSize = DefaultConfig().ContractSize
	}

	t := &Terminal{
		cfg:        cfg,
		logger:     logger.Named("paper"),
		now:        time.Now,
		symbols:    make(map[string]*symbolState),
		failures:   make(map[int64]failure),
		nextTicket: 1000,
		lastError:  types.TerminalError{Code: 1, Description: "Success"},
	}
	t.state.Store(int32(terminal.StateDisconnected))

	for symbol, q := range cfg.Quotes {
		t.SetQuote(symbol, q.Bid, q.Ask)
	}
	return t
}

// SetClock replaces the time source.
func (t *Terminal) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// SetQuote creates the symbol if needed and updates its tick. Open
// positions on the symbol are marked to the new quote.
func (t *Terminal) SetQuote(symbol string, bid, ask decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.symbols[symbol]
	if !ok {
		s = &symbolState{
			info: types.SymbolInfo{
				Name:       symbol,
				Digits:     int(bid.Exponent() * -1),
				VolumeMin:  decimal.RequireFromString("0.01"),
				VolumeMax:  decimal.NewFromInt(100),
				VolumeStep: decimal.RequireFromString("0.01"),
			},
			bars: make(map[types.Timeframe][]types.Bar),
		}
		if s.info.Digits < 0 {
			s.info.Digits = 0
		}
		s.info.Point = decimal.New(1, -int32(s.info.Digits))
		t.symbols[symbol] = s
	}

	s.info.Bid = bid
	s.info.Ask = ask
	if !s.info.Point.IsZero() {
		s.info.Spread = int(ask.Sub(bid).Div(s.info.Point).Round(0).IntPart())
	}
	s.tick = types.Tick{Symbol: symbol, Time: t.now().UTC(), Bid: bid, Ask: ask, Last: bid}

	for _, p := range t.positions {
		if p.Symbol == symbol {
			t.markToMarket(p, s.tick)
		}
	}
}

// SetBars replaces the bar history of a symbol for a timeframe. Bars are
// kept oldest first.
func (t *Terminal) SetBars(symbol string, tf types.Timeframe, bars []types.Bar) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.symbols[symbol]
	if !ok {
		return
	}
	cp := append([]types.Bar(nil), bars...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Time.Before(cp[j].Time) })
	s.bars[tf] = cp
}

// AddPosition inserts an open position directly. A zero ticket is assigned.
func (t *Terminal) AddPosition(p types.Position) types.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.Ticket == 0 {
		p.Ticket = t.allocTicket()
	} else if p.Ticket >= t.nextTicket {
		t.nextTicket = p.Ticket + 1
	}
	if p.Identifier == 0 {
		p.Identifier = p.Ticket
	}
	if p.Time.IsZero() {
		p.Time = t.now().UTC()
	}
	if s, ok := t.symbols[p.Symbol]; ok {
		t.markToMarket(&p, s.tick)
	}

	cp := p
	t.positions = append(t.positions, &cp)
	return cp
}

// RejectTicket makes orders on the given position ticket return retcode.
func (t *Terminal) RejectTicket(ticket int64, retcode types.ReturnCode) {
	t.setFailure(ticket, failure{retcode: retcode})
}

// FailTicket makes orders on the given position ticket fail with err.
func (t *Terminal) FailTicket(ticket int64, err error) {
	t.setFailure(ticket, failure{err: err})
}

// NoResultForTicket makes orders on the given position ticket return no
// result, as the terminal does for malformed requests.
func (t *Terminal) NoResultForTicket(ticket int64) {
	t.setFailure(ticket, failure{noResult: true})
}

// FailInitialize makes Initialize fail with err until cleared with nil.
func (t *Terminal) FailInitialize(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initErr = err
}

func (t *Terminal) setFailure(ticket int64, f failure) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[ticket] = f
}

// Initialize simulates attaching to the terminal.
func (t *Terminal) Initialize(ctx context.Context) error {
	t.mu.Lock()
	err := t.initErr
	t.mu.Unlock()

	if err != nil {
		t.state.Store(int32(terminal.StateError))
		return err
	}
	t.state.Store(int32(terminal.StateConnected))
	t.logger.Info("paper terminal initialized")
	return nil
}

// Shutdown simulates detaching from the terminal.
func (t *Terminal) Shutdown(ctx context.Context) error {
	t.state.Store(int32(terminal.StateDisconnected))
	t.logger.Info("paper terminal shut down")
	return nil
}

// State returns connection state.
func (t *Terminal) State() terminal.ConnectionState {
	return terminal.ConnectionState(t.state.Load())
}

func (t *Terminal) checkConnected() error {
	if t.State() != terminal.StateConnected {
		return terminal.ErrNotConnected
	}
	return nil
}

func (t *Terminal) SymbolInfo(ctx context.Context, symbol string) (*types.SymbolInfo, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.symbols[symbol]
	if !ok {
		t.lastError = types.TerminalError{Code: -1, Description: fmt.Sprintf("Terminal: Unknown symbol %s", symbol)}
		return nil, fmt.Errorf("%w: symbol %s", types.ErrNotFound, symbol)
	}
	info := s.info
	return &info, nil
}

func (t *Terminal) SymbolInfoTick(ctx context.Context, symbol string) (*types.Tick, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: tick for %s", types.ErrNotFound, symbol)
	}
	tick := s.tick
	return &tick, nil
}

// CopyRatesFromPos returns count bars starting start bars back from the
// most recent one, oldest first.
func (t *Terminal) CopyRatesFromPos(ctx context.Context, symbol string, tf types.Timeframe, start, count int) ([]types.Bar, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: symbol %s", types.ErrNotFound, symbol)
	}
	bars := s.bars[tf]
	end := len(bars) - start
	if end <= 0 || count <= 0 {
		return []types.Bar{}, nil
	}
	begin := end - count
	if begin < 0 {
		begin = 0
	}
	return append([]types.Bar{}, bars[begin:end]...), nil
}

func (t *Terminal) CopyRatesRange(ctx context.Context, symbol string, tf types.Timeframe, from, to time.Time) ([]types.Bar, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: symbol %s", types.ErrNotFound, symbol)
	}
	out := []types.Bar{}
	for _, b := range s.bars[tf] {
		if !b.Time.Before(from) && !b.Time.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *Terminal) PositionsGet(ctx context.Context) ([]types.Position, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	return out, nil
}

func (t *Terminal) PositionsTotal(ctx context.Context) (int, error) {
	if err := t.checkConnected(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.positions), nil
}

// HistoryDealsGet filters by ticket or position when given, otherwise by
// the time range.
func (t *Terminal) HistoryDealsGet(ctx context.Context, q types.HistoryQuery) ([]types.Deal, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := []types.Deal{}
	for _, d := range t.deals {
		if !inRange(d.Time, q) {
			continue
		}
		if v, err := q.Ticket.Take(); err == nil && d.Order != v {
			continue
		}
		if v, err := q.Position.Take(); err == nil && d.PositionID != v {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (t *Terminal) HistoryOrdersGet(ctx context.Context, q types.HistoryQuery) ([]types.HistoryOrder, error) {
	if err := t.checkConnected(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := []types.HistoryOrder{}
	for _, o := range t.orders {
		if !inRange(o.TimeSetup, q) {
			continue
		}
		if v, err := q.Ticket.Take(); err == nil && o.Ticket != v {
			continue
		}
		if v, err := q.Position.Take(); err == nil && o.PositionID != v {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (t *Terminal) LastError(ctx context.Context) (types.TerminalError, error) {
	if err := t.checkConnected(); err != nil {
		return types.TerminalError{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastError, nil
}

func inRange(ts time.Time, q types.HistoryQuery) bool {
	if !q.From.IsZero() && ts.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && ts.After(q.To) {
		return false
	}
	return true
}

// allocTicket must be called with mu held.
func (t *Terminal) allocTicket() int64 {
	t.nextTicket++
	return t.nextTicket
}

// markToMarket must be called with mu held.
func (t *Terminal) markToMarket(p *types.Position, tick types.Tick) {
	p.PriceCurrent = tick.ClosePrice(p.Side)
	p.Profit = t.pnl(p.Side, p.PriceOpen, p.PriceCurrent, p.Volume)
}

func (t *Terminal) pnl(side types.Side, open, close, volume decimal.Decimal) decimal.Decimal {
	diff := close.Sub(open)
	if side == types.SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(volume).Mul(t.cfg.ContractSize).Round(2)
}

var _ terminal.Terminal = (*Terminal)(nil)
