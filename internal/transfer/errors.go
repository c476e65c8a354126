package transfer

import (
	"errors"
	"fmt"
)

// Kind separates failures that never reached the service from failures the service reported.
type Kind string

const (
	KindTransport Kind = "transport"
	KindService   Kind = "service"
)

// ErrEmptyResponse marks a 2xx response without a document body.
var ErrEmptyResponse = errors.New("empty response body")

// Error is a classified transfer failure.
type Error struct {
	Kind       Kind   `json:"kind"`
	Op         string `json:"op"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error formats transfer failures for logs and UI.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Kind, e.Op, e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var tErr *Error
	return errors.As(err, &tErr) && tErr.Kind == KindTransport
}

// IsService reports whether err is a failure reported by the processing service.
func IsService(err error) bool {
	var tErr *Error
	return errors.As(err, &tErr) && tErr.Kind == KindService
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.StatusCode
	}
	return 0
}

func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "service unreachable", Err: err}
}

func serviceError(op string, status int, message string, err error) *Error {
	return &Error{Kind: KindService, Op: op, StatusCode: status, Message: message, Err: err}
}
