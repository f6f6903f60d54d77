package atlas

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	utilnet "k8s.io/apimachinery/pkg/util/net"
)

// ErrorKind classifies a failed API interaction
type ErrorKind int

const (
	// KindUnknown is an unclassified, non-retriable failure
	KindUnknown ErrorKind = iota

	// KindNetworkTransient covers timeouts, resets and refused connections
	KindNetworkTransient

	// KindRateLimited is HTTP 429
	KindRateLimited

	// KindServerTransient is HTTP 500, 502, 503 or 504
	KindServerTransient

	// KindServerError is any other 5xx
	KindServerError

	// KindAuthFailure is HTTP 401 or 403
	KindAuthFailure

	// KindNotFound is HTTP 404
	KindNotFound

	// KindClientError is any other 4xx
	KindClientError

	// KindRetriesExhausted wraps the last retriable failure once maxAttempts is spent
	KindRetriesExhausted

	// KindCancelled means the run context ended before the request completed
	KindCancelled

	// KindDecode means a 2xx body could not be decoded
	KindDecode
)

var kindNames = map[ErrorKind]string{
	KindUnknown:          "unknown",
	KindNetworkTransient: "network_transient",
	KindRateLimited:      "rate_limited",
	KindServerTransient:  "server_transient",
	KindServerError:      "server_error",
	KindAuthFailure:      "auth_failure",
	KindNotFound:         "not_found",
	KindClientError:      "client_error",
	KindRetriesExhausted: "retries_exhausted",
	KindCancelled:        "cancelled",
	KindDecode:           "decode",
}

// String returns the snake_case name used in logs, metrics labels and exports
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText lets JSON and YAML encoders emit the kind by name
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Retriable reports whether a request failing with this kind may be re-issued
func (k ErrorKind) Retriable() bool {
	switch k {
	case KindNetworkTransient, KindRateLimited, KindServerTransient:
		return true
	default:
		return false
	}
}

// Error is a classified API failure
type Error struct {
	Kind       ErrorKind
	StatusCode int    // 0 for network-level failures
	Attempts   int    // attempts made on the failing request
	Path       string // request path
	Detail     string // server-provided detail, if any
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}
	if e.Path != "" {
		fmt.Fprintf(&sb, " on %s", e.Path)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&sb, " after %d attempts", e.Attempts)
	}
	if e.Detail != "" {
		fmt.Fprintf(&sb, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Retriable reports whether the failure is eligible for another attempt
func (e *Error) Retriable() bool {
	return e.Kind.Retriable()
}

// KindOf extracts the kind from an error chain, KindUnknown if none
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsAuthFailure reports whether err is, or wraps, an authentication failure
func IsAuthFailure(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Kind == KindAuthFailure {
		return true
	}
	return apiErr.Err != nil && IsAuthFailure(apiErr.Err)
}

// StatusKind maps a non-2xx status code to its kind
func StatusKind(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusInternalServerError,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return KindServerTransient
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuthFailure
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServerError
	case status >= 400:
		return KindClientError
	default:
		return KindUnknown
	}
}

// NetworkKind classifies a transport-level error. Callers must check their
// own context first: a cancelled run looks like a timeout from here.
func NetworkKind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case utilnet.IsTimeout(err),
		utilnet.IsConnectionReset(err),
		utilnet.IsConnectionRefused(err),
		utilnet.IsProbableEOF(err),
		utilnet.IsHTTP2ConnectionLost(err),
		errors.Is(err, context.DeadlineExceeded):
		return KindNetworkTransient
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.IsTemporary || dnsErr.IsTimeout) {
		return KindNetworkTransient
	}
	return KindUnknown
}
