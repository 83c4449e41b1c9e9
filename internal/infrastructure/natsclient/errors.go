package natsclient

import "errors"

// Domain-specific errors for NATS connection management.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrResolveFailed is returned when credential or certificate material
	// cannot be resolved from the configuration (unreadable file, bad seed).
	ErrResolveFailed = errors.New("nats: option resolution failed")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("nats: connection failed")

	// ErrNotConnected is returned when attempting operations on an absent connection.
	ErrNotConnected = errors.New("nats: client not connected")
)
