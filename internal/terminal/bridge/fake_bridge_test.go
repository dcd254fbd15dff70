package bridge

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type handlerFunc func(params json.RawMessage) (any, *RemoteError)

type rawRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// fakeBridge serves the bridge protocol over in-memory pipes.
type fakeBridge struct {
	t *testing.T

	mu       sync.Mutex
	version  string
	handlers map[string]handlerFunc
	requests []rawRequest
	conns    []net.Conn

	dials atomic.Int32
}

func newFakeBridge(t *testing.T) *fakeBridge {
	fb := &fakeBridge{
		t:        t,
		version:  "1.2.0",
		handlers: make(map[string]handlerFunc),
	}
	fb.handle(methodInitialize, func(json.RawMessage) (any, *RemoteError) { return true, nil })
	fb.handle(methodShutdown, func(json.RawMessage) (any, *RemoteError) { return true, nil })
	t.Cleanup(fb.closeAll)
	return fb
}

func (fb *fakeBridge) handle(method string, h handlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.handlers[method] = h
}

func (fb *fakeBridge) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	fb.dials.Add(1)
	client, server := net.Pipe()
	fb.mu.Lock()
	fb.conns = append(fb.conns, server)
	fb.mu.Unlock()
	go fb.serve(server)
	return client, nil
}

func (fb *fakeBridge) serve(conn net.Conn) {
	for {
		payload, err := readFrame(conn)
		if err != nil {
			return
		}
		var req rawRequest
		if err := codec.Unmarshal(payload, &req); err != nil {
			fb.t.Errorf("fake bridge: bad request: %v", err)
			return
		}

		fb.mu.Lock()
		fb.requests = append(fb.requests, req)
		h, ok := fb.handlers[req.Method]
		version := fb.version
		fb.mu.Unlock()

		resp := map[string]any{"id": req.ID, "result": nil}
		switch {
		case req.Method == methodHello:
			resp["result"] = map[string]string{"version": version, "terminal": "fake"}
		case ok:
			result, rerr := h(req.Params)
			if rerr != nil {
				resp["error"] = rerr
			} else {
				resp["result"] = result
			}
		default:
			resp["error"] = &RemoteError{Code: -32601, Message: "unknown method " + req.Method}
		}

		out, err := codec.Marshal(resp)
		if err != nil {
			fb.t.Errorf("fake bridge: encode: %v", err)
			return
		}
		if err := writeFrame(conn, out); err != nil {
			return
		}
	}
}

// dropConnections closes the server side of every open connection.
func (fb *fakeBridge) dropConnections() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, c := range fb.conns {
		_ = c.Close()
	}
	fb.conns = nil
}

func (fb *fakeBridge) closeAll() {
	fb.dropConnections()
}

func (fb *fakeBridge) lastRequest(method string) (rawRequest, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := len(fb.requests) - 1; i >= 0; i-- {
		if fb.requests[i].Method == method {
			return fb.requests[i], true
		}
	}
	return rawRequest{}, false
}

func newTestClient(t *testing.T, fb *fakeBridge) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AutoReconnect = false
	cfg.ConnectTimeout = time.Second
	cfg.HandshakeTimeout = time.Second
	cfg.Dial = fb.dial

	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
