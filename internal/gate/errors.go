package gate

import "errors"

// Sentinel errors returned by HybridGate.Check and Authorize.
var (
	// ErrUnauthenticated means no subject was supplied.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUnauthorized means the subject is known but not allowed.
	ErrUnauthorized = errors.New("permission denied")
)
