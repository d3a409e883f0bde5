package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ganhos/internal/core"
)

// StatusError is a non-2xx answer from the remote service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("remote status %d: %s", e.Code, msg)
	}
	return fmt.Sprintf("remote status %d", e.Code)
}

// Message extracts the server's "message" field, falling back to the raw body.
func (e *StatusError) Message() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(e.Body)
}

// Is lets errors.Is(err, core.ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == core.ErrNotFound && e.Code == http.StatusNotFound
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
