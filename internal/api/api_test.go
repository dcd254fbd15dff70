package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tathienbao/terminal-gateway/internal/api"
	"github.com/tathienbao/terminal-gateway/internal/gateway"
	"github.com/tathienbao/terminal-gateway/internal/terminal"
	"github.com/tathienbao/terminal-gateway/internal/terminal/paper"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type httpCall struct {
	method string
	route  string
	status int
}

type recordingRecorder struct {
	mu     sync.Mutex
	calls  []httpCall
	errors []string
}

func (r *recordingRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, httpCall{method, route, status})
}

func (r *recordingRecorder) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func (r *recordingRecorder) lastCall() httpCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

type testEnv struct {
	term     *paper.Terminal
	session  *terminal.Session
	server   *api.Server
	recorder *recordingRecorder
}

func newTestEnv(t *testing.T, opts ...api.Option) *testEnv {
	t.Helper()
	term := paper.New(paper.DefaultConfig(), nil)
	session := terminal.NewSession(term, time.Second, nil, nil)
	t.Cleanup(func() { _ = session.Close(context.Background()) })

	env := &testEnv{
		term:     term,
		session:  session,
		recorder: &recordingRecorder{},
	}
	opts = append([]api.Option{api.WithRecorder(env.recorder)}, opts...)
	env.server = api.NewServer(api.DefaultConfig(), gateway.NewService(session), opts...)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeArray(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPositions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/positions_get", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideBuy, Volume: d("1"), Magic: 100})
	env.term.AddPosition(types.Position{Symbol: "GBPUSD", Side: types.SideSell, Volume: d("2"), Magic: 200})

	rec = env.do(t, http.MethodGet, "/positions_get", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeArray(t, rec), 2)

	rec = env.do(t, http.MethodGet, "/get_positions?magic=200", "")
	require.Equal(t, http.StatusOK, rec.Code)
	positions := decodeArray(t, rec)
	require.Len(t, positions, 1)
	assert.Equal(t, "GBPUSD", positions[0]["symbol"])
	assert.Equal(t, "sell", positions[0]["type"])
	assert.Equal(t, 2.0, positions[0]["volume"])

	rec = env.do(t, http.MethodGet, "/positions_get?magic=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/positions_total", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decodeObject(t, rec)["total_positions"])
}

func TestCloseAll_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideBuy, Volume: d("1")})
	b := env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideBuy, Volume: d("1")})
	env.term.AddPosition(types.Position{Symbol: "GBPUSD", Side: types.SideSell, Volume: d("0.5")})
	env.term.FailTicket(b.Ticket, errors.New("ipc timeout"))

	rec := env.do(t, http.MethodPost, "/close_all_positions", `{"order_type": "all"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeObject(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["partial_failure"])
	assert.Equal(t, 2.0, body["succeeded"])
	assert.Equal(t, 1.0, body["failed"])

	orders, ok := body["closed_orders"].([]any)
	require.True(t, ok)
	require.Len(t, orders, 3)

	failed := orders[1].(map[string]any)
	assert.Equal(t, float64(b.Ticket), failed["ticket"])
	assert.Equal(t, false, failed["success"])
	assert.Contains(t, failed["error"], "ipc timeout")
	assert.NotContains(t, failed, "result")

	closed := orders[0].(map[string]any)
	assert.Equal(t, true, closed["success"])
	assert.Equal(t, "sell", closed["type"])
	result := closed["result"].(map[string]any)
	assert.Equal(t, float64(types.RetcodeDone), result["retcode"])
}

func TestCloseAll_EmptyBodyAndNoPositions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/close_all_positions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeObject(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["partial_failure"])
	assert.Equal(t, []any{}, body["closed_orders"])
}

func TestCloseAll_Filters(t *testing.T) {
	env := newTestEnv(t)
	env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideBuy, Volume: d("1"), Magic: 7})
	sell := env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideSell, Volume: d("1"), Magic: 7})
	env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideSell, Volume: d("1"), Magic: 8})

	// order_type accepts the terminal's integer sides
	rec := env.do(t, http.MethodPost, "/close_all_positions", `{"order_type": 1, "magic": 7, "type_filling": "fok", "deviation": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	orders := decodeObject(t, rec)["closed_orders"].([]any)
	require.Len(t, orders, 1)
	closed := orders[0].(map[string]any)
	assert.Equal(t, float64(sell.Ticket), closed["ticket"])

	request := closed["result"].(map[string]any)["request"].(map[string]any)
	assert.Equal(t, "fok", request["type_filling"])
	assert.Equal(t, 5.0, request["deviation"])
	assert.Equal(t, 7.0, request["magic"])
}

func TestCloseAll_InvalidRequest(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown side", `{"order_type": "hedge"}`},
		{"unknown fill", `{"type_filling": "partial"}`},
		{"negative deviation", `{"deviation": -1}`},
		{"malformed", `{"order_type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/close_all_positions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeObject(t, rec)["error"])
		})
	}
}

func TestCloseAll_EnumerationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.term.FailInitialize(errors.New("terminal not running"))

	rec := env.do(t, http.MethodPost, "/close_all_positions", `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeObject(t, rec)
	assert.Contains(t, body["error"], "terminal unavailable")
	assert.NotContains(t, body, "closed_orders")
	assert.Contains(t, env.recorder.errors, "terminal_unavailable")
}

func TestClosePosition(t *testing.T) {
	env := newTestEnv(t)
	p := env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideBuy, Volume: d("1")})

	rec := env.do(t, http.MethodPost, "/close_position",
		`{"ticket": `+itoa(p.Ticket)+`, "symbol": "EURUSD", "type": 0, "volume": 1, "comment": "manual"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeObject(t, rec)
	assert.Equal(t, true, body["success"])
	order := body["order"].(map[string]any)
	assert.Equal(t, float64(types.RetcodeDone), order["retcode"])
	assert.Equal(t, 1.085, order["price"])
	assert.Equal(t, "manual", order["request"].(map[string]any)["comment"])

	rec = env.do(t, http.MethodGet, "/positions_total", "")
	assert.Equal(t, 0.0, decodeObject(t, rec)["total_positions"])
}

func TestClosePosition_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/close_position", `{"symbol": "EURUSD"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeObject(t, rec)["error"], "missing required fields: ticket, type, volume")

	rec = env.do(t, http.MethodPost, "/close_position", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClosePosition_Rejected(t *testing.T) {
	env := newTestEnv(t)
	p := env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideSell, Volume: d("1")})
	env.term.RejectTicket(p.Ticket, types.RetcodeRequote)

	rec := env.do(t, http.MethodPost, "/close_position",
		`{"ticket": `+itoa(p.Ticket)+`, "symbol": "EURUSD", "type": "sell", "volume": "1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeObject(t, rec)
	assert.Equal(t, "Order not completed", body["error"])
	assert.Equal(t, float64(types.RetcodeRequote), body["retcode"])
	assert.Equal(t, types.RetcodeRequote.Description(), body["description"])
	assert.NotNil(t, body["order"])
}

func TestSendMarketOrder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/send_market_order",
		`{"symbol": "EURUSD", "volume": 0.1, "order_type": "buy", "sl": 1.08, "magic": 9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	order := decodeObject(t, rec)["order"].(map[string]any)
	assert.Equal(t, 1.08512, order["price"])

	rec = env.do(t, http.MethodGet, "/positions_get?magic=9", "")
	positions := decodeArray(t, rec)
	require.Len(t, positions, 1)
	assert.Equal(t, 1.08, positions[0]["sl"])

	rec = env.do(t, http.MethodPost, "/send_market_order", `{"symbol": "EURUSD", "volume": 0.1, "order_type": "long"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/send_market_order", `{"symbol": "EURUSD"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeObject(t, rec)["error"], "volume, order_type")
}

func TestOrderSend(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/order_send",
		`{"action": 1, "symbol": "GBPUSD", "volume": 0.2, "type": 1, "price": 1.271, "deviation": 10, "type_filling": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeObject(t, rec)["success"])

	rec = env.do(t, http.MethodPost, "/order_send", `{"action": 1, "volume": 0.2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModifySLTP(t *testing.T) {
	env := newTestEnv(t)
	p := env.term.AddPosition(types.Position{Symbol: "EURUSD", Side: types.SideBuy, Volume: d("1")})

	rec := env.do(t, http.MethodPost, "/modify_sl_tp",
		`{"ticket": `+itoa(p.Ticket)+`, "stop_loss": 1.07, "take_profit": 1.10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeObject(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["result"])

	rec = env.do(t, http.MethodPost, "/modify_sl_tp", `{"ticket": 999999, "stop_loss": 1.07, "take_profit": 1.10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/modify_sl_tp", `{"ticket": 1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeObject(t, rec)["error"], "stop_loss, take_profit")
}

func TestSymbolEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/symbol_info/EURUSD", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeObject(t, rec)
	assert.Equal(t, "EURUSD", info["symbol"])
	assert.Equal(t, 1.085, info["bid"])
	assert.Equal(t, 1.08512, info["ask"])
	assert.Contains(t, info, "spread")
	assert.Contains(t, info, "volume")

	rec = env.do(t, http.MethodGet, "/symbol_info/NOPE", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeObject(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/symbol_info_tick/GBPUSD", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tick := decodeObject(t, rec)
	assert.Equal(t, 1.271, tick["bid"])
	assert.Contains(t, tick, "time")
}

func TestFetchData(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var bars []types.Bar
	for i := 0; i < 24; i++ {
		bars = append(bars, types.Bar{Time: base.Add(time.Duration(i) * time.Hour), Close: decimal.NewFromInt(int64(i))})
	}
	env.term.SetBars("EURUSD", types.TimeframeH1, bars)

	rec := env.do(t, http.MethodGet, "/fetch_data_pos?symbol=EURUSD&timeframe=H1&bars=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeArray(t, rec), 3)

	rec = env.do(t, http.MethodGet, "/fetch_data_pos?symbol=EURUSD", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeObject(t, rec)["error"], "timeframe, bars")

	rec = env.do(t, http.MethodGet, "/fetch_data_pos?symbol=EURUSD&timeframe=H1&bars=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet,
		"/fetch_data_range?symbol=EURUSD&timeframe=H1&from_date=2024-03-01T10:00:00&to_date=2024-03-01T12:00:00&timezone=Europe/Berlin", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeArray(t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-03-01T10:00:00+01:00", got[0]["time"])

	rec = env.do(t, http.MethodGet,
		"/fetch_data_range?symbol=EURUSD&timeframe=H1&from_date=2024-03-02&to_date=2024-03-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet,
		"/fetch_data_range?symbol=EURUSD&timeframe=H1&from_date=2024-03-01&to_date=2024-03-02&timezone=Mars/Base", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/send_market_order", `{"symbol": "EURUSD", "volume": 1, "order_type": "buy"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	opened := decodeObject(t, rec)["order"].(map[string]any)
	ticket := int64(opened["order"].(float64))

	rec = env.do(t, http.MethodPost, "/close_all_positions", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/get_deal_from_ticket?ticket="+itoa(ticket)+"&timezone=Asia/Tokyo", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deal := decodeObject(t, rec)
	assert.Equal(t, true, deal["closed"])
	assert.Equal(t, "buy", deal["type"])
	assert.Contains(t, deal["open_time"], "+09:00")
	assert.Len(t, deal["deals"], 2)

	rec = env.do(t, http.MethodGet, "/get_order_from_ticket?ticket="+itoa(ticket), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(ticket), decodeObject(t, rec)["ticket"])

	rec = env.do(t, http.MethodGet, "/history_orders_get?ticket="+itoa(ticket), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeArray(t, rec), 1)

	rec = env.do(t, http.MethodGet, "/history_deals_get?position="+itoa(ticket), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeArray(t, rec), 2)

	now := time.Now().Unix()
	rec = env.do(t, http.MethodGet, "/history_deals_get?from_timestamp="+itoa(now-3600)+"&to_timestamp="+itoa(now+3600), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeArray(t, rec), 2)

	tests := []struct {
		path   string
		status int
	}{
		{"/get_deal_from_ticket", http.StatusBadRequest},
		{"/get_deal_from_ticket?ticket=abc", http.StatusBadRequest},
		{"/get_deal_from_ticket?ticket=424242", http.StatusNotFound},
		{"/get_deal_from_ticket?ticket=" + itoa(ticket) + "&timezone=Nowhere/City", http.StatusBadRequest},
		{"/get_order_from_ticket", http.StatusBadRequest},
		{"/get_order_from_ticket?ticket=424242", http.StatusNotFound},
		{"/history_orders_get?ticket=424242", http.StatusNotFound},
		{"/history_deals_get", http.StatusBadRequest},
		{"/history_deals_get?position=424242", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestLastError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/last_error", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, 1.0, body["last_error_code"])
	assert.Equal(t, "Success", body["description"])

	rec = env.do(t, http.MethodGet, "/last_error_str", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1: Success", decodeObject(t, rec)["last_error_str"])
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeObject(t, rec)["error"])

	rec = env.do(t, http.MethodGet, "/close_all_positions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func itoa(v int64) string {
	return decimal.NewFromInt(v).String()
}
