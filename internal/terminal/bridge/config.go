// Package bridge connects to a trading terminal through its automation
// bridge process over TCP.
package bridge

import (
	"context"
	"net"
	"time"
)

// DialFunc opens the transport to the bridge.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds bridge connection configuration.
type Config struct {
	// Connection settings
	Host string
	Port int

	// Timeouts
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration

	// Rate limiting
	MaxRequestsPerSecond int

	// Reconnection
	AutoReconnect     bool
	ReconnectInterval time.Duration
	MaxReconnectTries int

	// VersionConstraint is checked against the version the bridge reports
	// in the hello exchange, e.g. ">= 1.0.0, < 2.0.0".
	VersionConstraint string

	// ClientName is announced to the bridge.
	ClientName string

	// Dial overrides the TCP dialer. Used by tests.
	Dial DialFunc
}

// DefaultConfig returns default bridge configuration.
func DefaultConfig() Config {
	return Config{
		Host:                 "localhost",
		Port:                 18812,
		ConnectTimeout:       10 * time.Second,
		HandshakeTimeout:     5 * time.Second,
		MaxRequestsPerSecond: 50,
		AutoReconnect:        true,
		ReconnectInterval:    5 * time.Second,
		MaxReconnectTries:    10,
		VersionConstraint:    ">= 1.0.0, < 2.0.0",
		ClientName:           "terminal-gateway",
	}
}
