package httpclient

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// Error type constants
const (
	ErrorNone     = "none"
	ErrorCanceled = "canceled"
	ErrorTimeout  = "timeout"
	ErrorDNS      = "dns_error"
	ErrorTLS      = "tls_error"
	ErrorNetwork  = "network_error"
	ErrorHTTP     = "http_error"
)

// ClassifyError determines the error type from a transport error
// Returns the error type constant and a human-readable message.
// The message never contains the request URL, which can carry an API key.
func ClassifyError(err error) (string, string) {
	if err == nil {
		return ErrorNone, ""
	}

	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		cause = urlErr.Err
	}
	errMsg := cause.Error()

	// Check for timeout errors
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout, "request timeout"
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCanceled, "request canceled"
	}

	// Check if it's a network error with Timeout() method
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout, "request timeout"
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorDNS, "DNS lookup failed"
	}

	// Check for TLS/certificate errors
	if strings.Contains(errMsg, "tls") || strings.Contains(errMsg, "TLS") {
		return ErrorTLS, "TLS handshake failed"
	}
	if strings.Contains(errMsg, "certificate") || strings.Contains(errMsg, "x509") {
		return ErrorTLS, "certificate error"
	}

	// Check for connection refused and similar network errors
	if strings.Contains(errMsg, "connection refused") {
		return ErrorNetwork, "connection refused"
	}
	if strings.Contains(errMsg, "connection reset") {
		return ErrorNetwork, "connection reset"
	}
	if strings.Contains(errMsg, "no such host") {
		return ErrorDNS, "host not found"
	}
	if strings.Contains(errMsg, "network is unreachable") {
		return ErrorNetwork, "network unreachable"
	}

	// Default to network error for other cases
	return ErrorNetwork, errMsg
}
