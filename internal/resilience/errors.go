// Package resilience classifies place-search failures and provides the retry
// and circuit-breaker machinery built on that classification. Quota errors
// (HTTP 429) are terminal for a call: they are never retried and count toward
// opening the circuit.
package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// QuotaError marks a quota or rate-limit rejection from the API provider.
// It must surface immediately rather than being retried.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string { return e.Err.Error() }

func (e *QuotaError) Unwrap() error { return e.Err }

// NewQuotaError wraps an error as a quota rejection.
func NewQuotaError(err error) *QuotaError {
	return &QuotaError{Err: err}
}

// IsQuota reports whether the error chain contains a QuotaError.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// TransientError wraps an error that is safe to retry (5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether the error is safe to retry. Quota errors are
// never transient, even when wrapped around a retryable status.
func IsTransient(err error) bool {
	if err == nil || IsQuota(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// ClassifyHTTPStatus wraps err according to the response status code: 429
// becomes a QuotaError, retryable server-side statuses become transient, and
// anything else passes through unchanged.
func ClassifyHTTPStatus(err error, statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewQuotaError(err)
	case statusCode == http.StatusRequestTimeout,
		statusCode >= http.StatusInternalServerError:
		return NewTransientError(err, statusCode)
	default:
		return err
	}
}
