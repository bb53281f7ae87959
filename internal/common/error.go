// Package common defines shared constants and sentinel errors used across
// client and server layers of the semantic container. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Locator does not resolve to a stored record.
	ErrNotFound = errors.New("not found")

	// Malformed or unrecognized request envelope.
	ErrInvalidInput = errors.New("invalid input")

	// Authorization gate rejection, or an exhausted 401 retry on the client.
	ErrUnauthorized = errors.New("not authorized")

	// Network/connection-level failure below HTTP semantics.
	ErrUnavailable = errors.New("server unavailable")

	// Operation is not supported by the active storage backend.
	ErrUnsupported = errors.New("unsupported operation")

	// Generic internal flow control.
	ErrInternal = errors.New("internal error")
)
