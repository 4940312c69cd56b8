package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnreachable marks transport failures where no response was received.
var ErrUnreachable = errors.New("network unreachable")

// Error is an application error: a non-2xx response. Message carries the server's
// {"error": "..."} text verbatim and is the only text shown to the user.
type Error struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// StatusCode extracts the HTTP status from err, or 0 when err is not an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrUnreachable):
		return ErrUnreachable.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	default:
		return err.Error()
	}
}

func unreachable(method, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
}

func statusError(method, path string, status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return &Error{Status: status, Method: method, Path: path, Message: message}
}
