package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is matched by every 401 response. The stored session
// token has already been cleared when it is returned.
var ErrUnauthorized = errors.New("Authentication required") //nolint:staticcheck // user-facing message

// ErrMalformedResponse is matched when a 2xx body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// UnauthorizedError carries the server's reason for a 401.
type UnauthorizedError struct {
	// Message is the server's explanation, e.g. "Invalid credentials".
	Message string
}

func (e *UnauthorizedError) Error() string {
	return ErrUnauthorized.Error()
}

// Is makes errors.Is(err, ErrUnauthorized) true.
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// TransportError is a failure to reach the server or read its reply.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 404
}
