package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/moznion/go-optional"

	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

// ListPositions returns the open positions, restricted to tag when set.
// No matches yield an empty slice.
func (s *Service) ListPositions(ctx context.Context, tag optional.Option[int64]) ([]types.Position, error) {
	var positions []types.Position
	err := s.do(ctx, "list_positions", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		positions, err = listPositions(ctx, t, tag)
		return err
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// PositionsTotal returns the number of open positions.
func (s *Service) PositionsTotal(ctx context.Context) (int, error) {
	var total int
	err := s.do(ctx, "positions_total", func(ctx context.Context, t terminal.Terminal) error {
		var err error
		total, err = t.PositionsTotal(ctx)
		return unavailable("positions_total", err)
	})
	return total, err
}

func listPositions(ctx context.Context, t terminal.Terminal, tag optional.Option[int64]) ([]types.Position, error) {
	all, err := t.PositionsGet(ctx)
	if err != nil {
		return nil, unavailable("positions_get", err)
	}

	out := make([]types.Position, 0, len(all))
	for _, p := range all {
		if tag.IsSome() && p.Magic != tag.Unwrap() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// unavailable classifies a failed enumeration-style call as
// ErrTerminalUnavailable, keeping errors that already are.
func unavailable(method string, err error) error {
	if err == nil || errors.Is(err, types.ErrTerminalUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", types.ErrTerminalUnavailable, method, err)
}
