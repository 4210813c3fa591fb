package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrNoData marks a definitive empty result: the upstream answered and told
// us there is nothing for this query (HTTP 404 or a 2xx with an empty body).
// It must never be retried and must never abort a multi-day run.
var ErrNoData = errors.New("no data for this query")

// TransientError wraps an error that is safe to retry (429, 5xx, DNS or
// connect failure, timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsNoData reports whether err (or anything in its chain) is the definitive
// no-data marker.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or matches common transient network patterns (timeouts,
// connection resets, DNS failures). A no-data error is never transient.
func IsTransient(err error) bool {
	if err == nil || IsNoData(err) {
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

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
		"unexpected eof",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient condition that is safe to retry. 404 is deliberately absent:
// for a daily disclosure feed it means the day has no data.
func IsTransientHTTPStatus(statusCode int) bool {
	switch {
	case statusCode == 408, statusCode == 429:
		return true
	case statusCode >= 500 && statusCode <= 599:
		return true
	default:
		return false
	}
}
