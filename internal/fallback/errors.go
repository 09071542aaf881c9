package fallback

import (
	"context"
	"errors"
	"net"
)

// Cause names why a provider call was degraded. Every cause leads to the
// same action, the distinction only feeds logs and tests.
type Cause string

const (
	CauseNone          Cause = ""
	CauseTimeout       Cause = "timeout"
	CauseCanceled      Cause = "canceled"
	CauseUnauthorized  Cause = "unauthorized"
	CauseRateLimited   Cause = "rate_limited"
	CauseServiceError  Cause = "service_error"
	CauseTransport     Cause = "transport"
	CauseUnavailable   Cause = "unavailable"
	CauseInvalidFormat Cause = "invalid_format"
	CauseEmptyResult   Cause = "empty_result"
	CausePanic         Cause = "panic"
	CauseUnknown       Cause = "unknown"
)

// ProviderError tags a provider failure with its cause.
type ProviderError struct {
	Cause Cause
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return "provider " + string(e.Cause)
	}
	return "provider " + string(e.Cause) + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Fail wraps err as a provider failure of the given cause.
func Fail(cause Cause, err error) error {
	return &ProviderError{Cause: cause, Err: err}
}

// Classify maps an error returned by a primary call to a Cause.
func Classify(err error) Cause {
	if err == nil {
		return CauseNone
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr.Cause != CauseNone {
		return perr.Cause
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	if errors.Is(err, context.Canceled) {
		return CauseCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CauseTimeout
		}
		return CauseTransport
	}

	return CauseUnknown
}
