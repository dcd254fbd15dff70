package gateway

import (
	"context"
	"fmt"

	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// MaxBars caps a single rates request.
const MaxBars = 100000

// RatesRangeQuery selects bars between two caller-supplied dates.
type RatesRangeQuery struct {
	Symbol    string
	Timeframe string
	From      string
	To        string
	Timezone  string
}

// SymbolInfo returns instrument properties. Unknown symbols are
// types.ErrNotFound.
func (s *Service) SymbolInfo(ctx context.Context, symbol string) (*types.SymbolInfo, error) {
	if symbol == "" {
		return nil, invalidFields([]string{"symbol"})
	}
	var info *types.SymbolInfo
	err := s.do(ctx, "symbol_info", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		info, err = t.SymbolInfo(ctx, symbol)
		return err
	})
	return info, err
}

// SymbolTick returns the last quote for symbol.
func (s *Service) SymbolTick(ctx context.Context, symbol string) (*types.Tick, error) {
	if symbol == "" {
		return nil, invalidFields([]string{"symbol"})
	}
	var tick *types.Tick
	err := s.do(ctx, "symbol_info_tick", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		tick, err = t.SymbolInfoTick(ctx, symbol)
		return err
	})
	return tick, err
}

// RatesFromPos returns the latest bars for symbol, oldest first.
func (s *Service) RatesFromPos(ctx context.Context, symbol, timeframe string, bars int) ([]types.Bar, error) {
	if symbol == "" {
		return nil, invalidFields([]string{"symbol"})
	}
	tf, err := parseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	if bars <= 0 || bars > MaxBars {
		return nil, fmt.Errorf("%w: bars must be between 1 and %d, got %d", types.ErrInvalidArgument, MaxBars, bars)
	}

	var out []types.Bar
	err = s.do(ctx, "copy_rates_from_pos", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		out, err = t.CopyRatesFromPos(ctx, symbol, tf, 0, bars)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// RatesRange returns the bars between q.From and q.To. Bar times are
// rendered in q.Timezone.
func (s *Service) RatesRange(ctx context.Context, q RatesRangeQuery) ([]types.Bar, error) {
	if q.Symbol == "" {
		return nil, invalidFields([]string{"symbol"})
	}
	tf, err := parseTimeframe(q.Timeframe)
	if err != nil {
		return nil, err
	}
	r, err := ParseTimeRange(q.From, q.To, q.Timezone)
	if err != nil {
		return nil, err
	}

	var out []types.Bar
	err = s.do(ctx, "copy_rates_range", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		out, err = t.CopyRatesRange(ctx, q.Symbol, tf, r.From.UTC(), r.To.UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Time = out[i].Time.In(r.Location)
	}
	return nonNil(out), nil
}

func parseTimeframe(v string) (types.Timeframe, error) {
	tf, err := types.ParseTimeframe(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", types.ErrInvalidArgument, err)
	}
	return tf, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
