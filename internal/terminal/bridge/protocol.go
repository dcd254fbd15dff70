package bridge

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tathienbao/terminal-gateway/internal/types"
)

// maxFrameSize guards against corrupt length prefixes.
const maxFrameSize = 16 << 20

// Protocol method names.
const (
	methodHello            = "hello"
	methodInitialize       = "initialize"
	methodShutdown         = "shutdown"
	methodSymbolInfo       = "symbol_info"
	methodSymbolInfoTick   = "symbol_info_tick"
	methodPositionsGet     = "positions_get"
	methodPositionsTotal   = "positions_total"
	methodOrderSend        = "order_send"
	methodHistoryDealsGet  = "history_deals_get"
	methodHistoryOrdersGet = "history_orders_get"
	methodLastError        = "last_error"
	methodCopyRatesFromPos = "copy_rates_from_pos"
	methodCopyRatesRange   = "copy_rates_range"
)

var codec = sonic.ConfigStd

type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RemoteError    `json:"error,omitempty"`
}

// RemoteError is an error reported by the bridge for a single request.
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

// writeFrame writes a 4-byte big-endian length followed by the payload.
func writeFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	_, err := w.Write(buf)
	return err
}

// readFrame reads one length-prefixed frame.
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Wire representations. Times travel as unix seconds; the shallower Time
// fields shadow the embedded ones during encoding and decoding.

type helloParams struct {
	Client  string `json:"client"`
	Version string `json:"version"`
}

type helloResult struct {
	Version  string `json:"version"`
	Terminal string `json:"terminal"`
}

type symbolParams struct {
	Symbol string `json:"symbol"`
}

type historyParams struct {
	From     *int64 `json:"from,omitempty"`
	To       *int64 `json:"to,omitempty"`
	Ticket   *int64 `json:"ticket,omitempty"`
	Position *int64 `json:"position,omitempty"`
}

type ratesFromPosParams struct {
	Symbol    string          `json:"symbol"`
	Timeframe types.Timeframe `json:"timeframe"`
	Start     int             `json:"start"`
	Count     int             `json:"count"`
}

type ratesRangeParams struct {
	Symbol    string          `json:"symbol"`
	Timeframe types.Timeframe `json:"timeframe"`
	From      int64           `json:"from"`
	To        int64           `json:"to"`
}

type wireTradeRequest struct {
	types.TradeRequest
	Side       int `json:"type"`
	FillPolicy int `json:"type_filling"`
}

type wireOrderResult struct {
	types.OrderResult
	Request *wireTradeRequest `json:"request"`
}

type wirePosition struct {
	types.Position
	Time int64 `json:"time"`
}

type wireTick struct {
	types.Tick
	Time int64 `json:"time"`
}

type wireDeal struct {
	types.Deal
	Time int64 `json:"time"`
}

type wireOrder struct {
	types.HistoryOrder
	TimeSetup int64 `json:"time_setup"`
	TimeDone  int64 `json:"time_done"`
}

type wireBar struct {
	types.Bar
	Time int64 `json:"time"`
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func toWireRequest(req types.TradeRequest) wireTradeRequest {
	return wireTradeRequest{
		TradeRequest: req,
		Side:         int(req.Side),
		FillPolicy:   int(req.FillPolicy),
	}
}

func (w wireTradeRequest) decode() types.TradeRequest {
	req := w.TradeRequest
	req.Side = types.Side(w.Side)
	req.FillPolicy = types.FillPolicy(w.FillPolicy)
	return req
}

func (w wireOrderResult) decode() *types.OrderResult {
	res := w.OrderResult
	if w.Request != nil {
		res.Request = w.Request.decode()
	}
	return &res
}

func (w wirePosition) decode() types.Position {
	p := w.Position
	p.Time = fromUnix(w.Time)
	return p
}

func (w wireTick) decode() *types.Tick {
	t := w.Tick
	t.Time = fromUnix(w.Time)
	return &t
}

func (w wireDeal) decode() types.Deal {
	d := w.Deal
	d.Time = fromUnix(w.Time)
	return d
}

func (w wireOrder) decode() types.HistoryOrder {
	o := w.HistoryOrder
	o.TimeSetup = fromUnix(w.TimeSetup)
	o.TimeDone = fromUnix(w.TimeDone)
	return o
}

func (w wireBar) decode() types.Bar {
	b := w.Bar
	b.Time = fromUnix(w.Time)
	return b
}
