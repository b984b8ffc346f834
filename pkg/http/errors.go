package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

const (
	unknownErrorBody   = "Unknown error"
	maxDecodeErrorBody = 256
)

// HTTPError represents a non-2xx response. Message is the raw body text.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ConnectivityError means the backend could not be reached at all.
type ConnectivityError struct {
	BaseURL string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("Cannot connect to backend at %s. Make sure the backend server is running.", e.BaseURL)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 2xx body does not decode into the expected shape.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed response body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// classifyNetworkError turns unreachable-host failures into ConnectivityError
// and returns every other error unchanged.
func classifyNetworkError(baseURL string, err error) error {
	if isUnreachable(err) {
		return &ConnectivityError{BaseURL: baseURL, Err: err}
	}
	return err
}

func isUnreachable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return true
	}

	return false
}

// IsConnectivity reports whether err is a ConnectivityError.
func IsConnectivity(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}

// StatusCode returns the HTTP status of err, or 0 if err is not an HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
