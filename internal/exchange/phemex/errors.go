package phemex

import "errors"

// Error kind sentinels (spec.md §7 "Error Handling Design" taxonomy).
// The Adapter wraps these with fmt.Errorf("...: %w", err) at the point
// of failure; callers match with errors.Is against these sentinels.
var (
	ErrAuth             = errors.New("phemex: authentication rejected")
	ErrTransientIO      = errors.New("phemex: transient network or server error")
	ErrValidation       = errors.New("phemex: request validation failed")
	ErrInsufficientData = errors.New("phemex: insufficient data")
	ErrCancelled        = errors.New("phemex: operation cancelled")
	ErrUnknownSymbol    = errors.New("phemex: unknown symbol")
)

// retryable reports whether err should be retried by the Adapter's retry
// middleware (spec.md §4.1 "Retry policy"): TransientIOError only. Auth
// errors, validation errors, and success are all terminal.
func retryable(err error) bool {
	return errors.Is(err, ErrTransientIO)
}
