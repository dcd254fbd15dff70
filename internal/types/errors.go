package types

import "errors"

// Sentinel errors for the gateway.
var (
	// Terminal errors
	ErrTerminalUnavailable = errors.New("terminal unavailable")
	ErrNoResult            = errors.New("terminal returned no result")

	// Lookup errors
	ErrNotFound = errors.New("not found")

	// Validation errors
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
)
