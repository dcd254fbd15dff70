package gateway_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tathienbao/terminal-gateway/internal/alerting"
	"github.com/tathienbao/terminal-gateway/internal/gateway"
	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/terminal/paper"
	"github.com/tathienbao/terminal-gateway/internal/types"
	"github.com/tathienbao/terminal-gateway/mocks"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingRecorder struct {
	mu         sync.Mutex
	orders     []string
	bulkCloses [][2]int
}

func (r *recordingRecorder) RecordOrder(symbol, side, retcode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, symbol+"/"+side+"/"+retcode)
}

func (r *recordingRecorder) RecordBulkClose(succeeded, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkCloses = append(r.bulkCloses, [2]int{succeeded, failed})
}

type mockEnv struct {
	term     *mocks.MockTerminal
	svc      *gateway.Service
	recorder *recordingRecorder
	alerts   *alerting.CaptureAlerter
	notifier *alerting.Notifier
}

func newMockEnv(t *testing.T) *mockEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	term := mocks.NewMockTerminal(ctrl)
	term.EXPECT().Initialize(gomock.Any()).Return(nil).AnyTimes()

	env := &mockEnv{
		term:     term,
		recorder: &recordingRecorder{},
		alerts:   alerting.NewCaptureAlerter(),
	}
	env.notifier = alerting.NewNotifier(env.alerts, nil)
	session := terminal.NewSession(term, time.Second, nil, nil)
	env.svc = gateway.NewService(session,
		gateway.WithRecorder(env.recorder),
		gateway.WithNotifier(env.notifier),
	)
	return env
}

// expectTick answers every tick lookup for symbol with bid/ask.
func (e *mockEnv) expectTick(symbol, bid, ask string) {
	e.term.EXPECT().SymbolInfoTick(gomock.Any(), symbol).
		Return(&types.Tick{Symbol: symbol, Bid: d(bid), Ask: d(ask)}, nil).AnyTimes()
}

// captureOrders answers OrderSend with fn and records every request.
func (e *mockEnv) captureOrders(fn func(req types.TradeRequest) (*types.OrderResult, error)) *[]types.TradeRequest {
	var sent []types.TradeRequest
	e.term.EXPECT().OrderSend(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req types.TradeRequest) (*types.OrderResult, error) {
			sent = append(sent, req)
			return fn(req)
		}).AnyTimes()
	return &sent
}

func done(req types.TradeRequest) (*types.OrderResult, error) {
	return &types.OrderResult{
		Retcode: types.RetcodeDone,
		Deal:    req.Position + 1000,
		Order:   req.Position + 2000,
		Volume:  req.Volume,
		Price:   req.Price,
		Request: req,
	}, nil
}

type paperEnv struct {
	term *paper.Terminal
	svc  *gateway.Service
}

func newPaperEnv(t *testing.T, opts ...gateway.Option) *paperEnv {
	t.Helper()
	term := paper.New(paper.DefaultConfig(), nil)
	session := terminal.NewSession(term, time.Second, nil, nil)
	t.Cleanup(func() { _ = session.Close(context.Background()) })
	return &paperEnv{term: term, svc: gateway.NewService(session, opts...)}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "expected %s, got %s", want, got)
}
