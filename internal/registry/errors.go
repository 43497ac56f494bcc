package registry

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures where the request never completed. The
// caller may retry the action unchanged.
var ErrTransport = errors.New("backend unreachable")

// ErrNotFound is returned when a partner or attachment does not exist.
var ErrNotFound = errors.New("not found")

// APIError is a non-success response from the backend. Message carries the
// backend's own wording and is shown to the user verbatim when present.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (%d)", e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}

// UserMessage returns the text to show for err: the backend message for
// API errors, a retry hint for transport failures, err.Error() otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrTransport) {
		return "Could not reach the server. Please try again."
	}
	return err.Error()
}
