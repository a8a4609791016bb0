package ghl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// UpstreamError is returned when GoHighLevel answers with a non-2xx status. Body is the raw response body.
type UpstreamError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func newUpstreamError(status int, body []byte) *UpstreamError {
	msg := http.StatusText(status)
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, m := range []string{payload.Message, payload.Error, payload.Msg} {
			if strings.TrimSpace(m) != "" {
				msg = m
				break
			}
		}
	}
	return &UpstreamError{StatusCode: status, Message: msg, Body: body}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ghl: upstream returned %d: %s", e.StatusCode, e.Message)
}

// Kind names the error category reported to callers.
func (e *UpstreamError) Kind() string { return "UpstreamError" }

// IsNotFound reports whether the upstream resource does not exist.
func (e *UpstreamError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsAuthError reports whether the API key was rejected.
func (e *UpstreamError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// TransportError is returned when the request never produced an HTTP response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ghl: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Kind names the error category reported to callers.
func (e *TransportError) Kind() string { return "TransportError" }

// Timeout reports whether the request was cut short by a deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// DecodeError is returned when a 2xx response body is not valid JSON.
type DecodeError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ghl: decode response (status %d): %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind names the error category reported to callers.
func (e *DecodeError) Kind() string { return "DecodeError" }
