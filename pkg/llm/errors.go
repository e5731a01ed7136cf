package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError marks a failure that is worth retrying: connection
// resets, timeouts, 5xx-class upstream responses. Retry logic dispatches
// on this type rather than on error message text.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError marks a failure that retrying cannot fix: authentication
// failures, malformed requests, malformed responses.
type FatalError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: fatal failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: fatal failure: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError.
func Transient(op string, status int, err error) error {
	return &TransientError{Op: op, StatusCode: status, Err: err}
}

// Fatal wraps err as a FatalError.
func Fatal(op string, status int, err error) error {
	return &FatalError{Op: op, StatusCode: status, Err: err}
}

// ClassifyStatus wraps err according to the HTTP status code.
// 408, 429 and 5xx responses are transient; other 4xx are fatal.
func ClassifyStatus(op string, status int, err error) error {
	switch {
	case status >= 500, status == 408, status == 429:
		return Transient(op, status, err)
	default:
		return Fatal(op, status, err)
	}
}

// IsTransient reports whether err should be retried. Typed transient
// errors and raw network timeouts qualify; context cancellation never
// does, even when wrapped.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return false
	}

	// Unclassified network failures from lower layers.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
