package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tathienbao/terminal-gateway/internal/terminal"
)

// Version is the protocol version this client announces.
const Version = "1.0.0"

// ErrIncompatibleBridge is returned when the bridge version fails the
// configured constraint.
var ErrIncompatibleBridge = errors.New("incompatible bridge version")

// Client implements terminal.Terminal over the bridge protocol.
// Requests are multiplexed by id over a single connection.
type Client struct {
	cfg        Config
	logger     *zap.Logger
	dial       DialFunc
	constraint *semver.Constraints

	// Connection
	conn          net.Conn
	writeMu       sync.Mutex
	state         atomic.Int32
	stateMu       sync.Mutex
	lastError     error
	connectedAt   time.Time
	bridgeVersion *semver.Version
	reconnecting  atomic.Bool

	// Rate limiting
	limiter *rate.Limiter

	// Request tracking
	nextReqID atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]chan response

	// Shutdown
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// NewClient creates a new bridge client. It returns an error only when the
// version constraint cannot be parsed.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRequestsPerSecond <= 0 {
		cfg.MaxRequestsPerSecond = DefaultConfig().MaxRequestsPerSecond
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultConfig().HandshakeTimeout
	}
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultConfig().ClientName
	}

	var constraint *semver.Constraints
	if cfg.VersionConstraint != "" {
		c, err := semver.NewConstraint(cfg.VersionConstraint)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "parse bridge version constraint %q", cfg.VersionConstraint)
		}
		constraint = c
	}

	dial := cfg.Dial
	if dial == nil {
		dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
		dial = dialer.DialContext
	}

	c := &Client{
		cfg:        cfg,
		logger:     logger.Named("bridge"),
		dial:       dial,
		constraint: constraint,
		limiter:    rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), cfg.MaxRequestsPerSecond),
		pending:    make(map[int64]chan response),
		done:       make(chan struct{}),
	}
	c.state.Store(int32(terminal.StateDisconnected))

	return c, nil
}

// Connect dials the bridge and performs the hello exchange.
func (c *Client) Connect(ctx context.Context) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	select {
	case <-c.done:
		return pkgerrors.Wrap(terminal.ErrNotConnected, "client shut down")
	default:
	}

	if c.State() == terminal.StateConnected {
		return nil
	}

	c.state.Store(int32(terminal.StateConnecting))

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	c.logger.Info("connecting to terminal bridge", zap.String("addr", addr))

	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := c.dial(ctx, "tcp", addr)
	if err != nil {
		c.state.Store(int32(terminal.StateError))
		c.lastError = err
		return pkgerrors.Wrapf(terminal.ErrNotConnected, "dial %s: %v", addr, err)
	}

	c.conn = conn

	c.wg.Add(1)
	go c.readLoop(conn)

	if err := c.handshake(ctx, conn); err != nil {
		c.state.Store(int32(terminal.StateError))
		c.lastError = err
		c.conn = nil
		_ = conn.Close()
		return pkgerrors.Wrap(err, "handshake")
	}

	c.connectedAt = time.Now()
	c.state.Store(int32(terminal.StateConnected))

	c.logger.Info("connected to terminal bridge",
		zap.String("addr", addr),
		zap.Stringer("bridge_version", c.bridgeVersion),
		zap.Time("connected_at", c.connectedAt),
	)

	return nil
}

// handshake exchanges versions and checks the bridge against the constraint.
func (c *Client) handshake(ctx context.Context, conn net.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	var res helloResult
	found, err := c.roundTrip(ctx, conn, methodHello, helloParams{Client: c.cfg.ClientName, Version: Version}, &res)
	if err != nil {
		return err
	}
	if !found {
		return pkgerrors.Wrap(ErrIncompatibleBridge, "empty hello response")
	}

	v, err := semver.NewVersion(res.Version)
	if err != nil {
		return pkgerrors.Wrapf(ErrIncompatibleBridge, "bridge reported version %q", res.Version)
	}
	if c.constraint != nil {
		if ok, errs := c.constraint.Validate(v); !ok {
			return pkgerrors.Wrapf(ErrIncompatibleBridge, "bridge %s does not satisfy %q: %v", v, c.cfg.VersionConstraint, errs)
		}
	}

	c.bridgeVersion = v
	return nil
}

// BridgeVersion returns the version reported by the bridge, if connected.
func (c *Client) BridgeVersion() *semver.Version {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.bridgeVersion
}

// readLoop reads response frames from conn until it fails.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	for {
		payload, err := readFrame(conn)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Error("read error", zap.Error(err))
			c.handleDisconnect(conn, err)
			return
		}

		var resp response
		if err := codec.Unmarshal(payload, &resp); err != nil {
			c.logger.Warn("discarding malformed frame", zap.Int("size", len(payload)), zap.Error(err))
			continue
		}
		c.deliver(resp)
	}
}

func (c *Client) deliver(resp response) {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("response for unknown request", zap.Int64("id", resp.ID))
		return
	}
	ch <- resp
}

// handleDisconnect fails every in-flight request and schedules reconnection.
func (c *Client) handleDisconnect(conn net.Conn, cause error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.conn != conn {
		return
	}
	_ = conn.Close()
	c.conn = nil
	c.lastError = cause
	c.state.Store(int32(terminal.StateDisconnected))
	c.failPending()

	c.logger.Warn("disconnected from terminal bridge", zap.Error(cause))

	if c.cfg.AutoReconnect && c.reconnecting.CompareAndSwap(false, true) {
		c.wg.Add(1)
		go c.reconnectLoop()
	}
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// reconnectLoop attempts to reconnect.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()
	defer c.reconnecting.Store(false)

	for i := 0; i < c.cfg.MaxReconnectTries; i++ {
		select {
		case <-c.done:
			return
		case <-time.After(c.cfg.ReconnectInterval):
		}

		if c.IsConnected() {
			return
		}

		c.logger.Info("attempting reconnect", zap.Int("attempt", i+1))

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout+c.cfg.HandshakeTimeout)
		err := c.Connect(ctx)
		cancel()

		if err == nil {
			c.logger.Info("reconnected successfully")
			return
		}

		c.logger.Warn("reconnect failed", zap.Error(err))
	}

	c.logger.Error("max reconnect attempts reached")
}

// call sends one request on the current connection and waits for its
// response. It reports false when the bridge answered with a null result.
func (c *Client) call(ctx context.Context, method string, params, out any) (bool, error) {
	c.stateMu.Lock()
	conn := c.conn
	c.stateMu.Unlock()

	if conn == nil || !c.IsConnected() {
		return false, pkgerrors.Wrap(terminal.ErrNotConnected, method)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, pkgerrors.Wrapf(err, "%s: rate limit", method)
	}

	return c.roundTrip(ctx, conn, method, params, out)
}

// roundTrip does not take stateMu, so Connect can use it for the handshake.
// A write failure closes conn; the read loop then reports the disconnect.
func (c *Client) roundTrip(ctx context.Context, conn net.Conn, method string, params, out any) (bool, error) {
	id := c.nextReqID.Add(1)
	payload, err := codec.Marshal(request{ID: id, Method: method, Params: params})
	if err != nil {
		return false, pkgerrors.Wrapf(err, "%s: encode request", method)
	}

	ch := make(chan response, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	if err := c.send(ctx, conn, payload); err != nil {
		c.forget(id)
		_ = conn.Close()
		return false, pkgerrors.Wrapf(terminal.ErrConnectionLost, "%s: write: %v", method, err)
	}

	c.logger.Debug("request sent", zap.Int64("id", id), zap.String("method", method))

	select {
	case resp, ok := <-ch:
		if !ok {
			return false, pkgerrors.Wrap(terminal.ErrConnectionLost, method)
		}
		if resp.Error != nil {
			return false, pkgerrors.Wrap(resp.Error, method)
		}
		if isNull(resp.Result) {
			return false, nil
		}
		if out != nil {
			if err := codec.Unmarshal(resp.Result, out); err != nil {
				return false, pkgerrors.Wrapf(err, "%s: decode result", method)
			}
		}
		return true, nil
	case <-ctx.Done():
		c.forget(id)
		return false, pkgerrors.Wrap(ctx.Err(), method)
	}
}

func (c *Client) send(ctx context.Context, conn net.Conn, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}
	return writeFrame(conn, payload)
}

func (c *Client) forget(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// Close stops reconnection and closes the connection. The client cannot be
// reused afterwards.
func (c *Client) Close() error {
	c.doneOnce.Do(func() { close(c.done) })

	c.stateMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state.Store(int32(terminal.StateDisconnected))
	c.stateMu.Unlock()

	c.failPending()
	c.wg.Wait()

	c.logger.Info("disconnected from terminal bridge")
	return nil
}

// State returns the current connection state.
func (c *Client) State() terminal.ConnectionState {
	return terminal.ConnectionState(c.state.Load())
}

// IsConnected returns true if connected.
func (c *Client) IsConnected() bool {
	return c.State() == terminal.StateConnected
}

// LastConnectionError returns the last transport error, if any.
func (c *Client) LastConnectionError() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.lastError == nil {
		return nil
	}
	return fmt.Errorf("last connection error: %w", c.lastError)
}
