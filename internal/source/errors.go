package source

import (
	"errors"
	"fmt"
)

// Reason classifies why a source contributed nothing.
type Reason string

const (
	ReasonInvalidURL Reason = "invalid-url"
	ReasonTransport  Reason = "transport"
	ReasonTimeout    Reason = "timeout"
	ReasonStatus     Reason = "status"
	ReasonRead       Reason = "read"
	ReasonEmpty      Reason = "empty"
	ReasonUnknown    Reason = "unknown"
)

var (
	ErrEmptyBody    = errors.New("empty response body")
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// FetchError is the failure half of a fetch Result.
type FetchError struct {
	URL        string
	Reason     Reason
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s after %d attempt(s): %v", e.URL, e.Reason, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s after %d attempt(s)", e.URL, e.Reason, e.Attempts)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches another *FetchError by reason, so callers can test
// errors.Is(err, &FetchError{Reason: ReasonTimeout}).
func (e *FetchError) Is(target error) bool {
	var t *FetchError
	if errors.As(target, &t) {
		return e.Reason == t.Reason
	}
	return false
}

func (e *FetchError) retryable() bool {
	switch e.Reason {
	case ReasonTransport, ReasonTimeout:
		return true
	case ReasonRead:
		return !errors.Is(e.Err, ErrBodyTooLarge)
	case ReasonStatus:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}

// ReasonOf returns the failure reason carried by err, or ReasonUnknown.
func ReasonOf(err error) Reason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ReasonUnknown
}
