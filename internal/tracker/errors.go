package tracker

import (
	"errors"
	"fmt"
	"time"
)

// AuthError reports a missing or rejected tracker credential. It is never retried.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientError reports a fault worth retrying: rate limiting, 5xx, network.
// RetryAfter is the tracker's reset hint, zero when none was given.
type TransientError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("transient tracker error (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("transient tracker error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FetchExhaustedError is returned when retries ran out or the run deadline
// expired. Results collected so far are discarded.
type FetchExhaustedError struct {
	Query    string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s exhausted after %d attempt(s): %v", e.Query, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

// IsAuth reports whether err is, or wraps, an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsExhausted reports whether err is, or wraps, a FetchExhaustedError.
func IsExhausted(err error) bool {
	var fe *FetchExhaustedError
	return errors.As(err, &fe)
}
