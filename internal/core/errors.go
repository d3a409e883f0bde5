package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist remotely.
var ErrNotFound = errors.New("not found")

// ValidationError rejects client input before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RemoteError carries a user-facing message together with the raw failure.
type RemoteError struct {
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError wraps err with a user-facing message.
func NewRemoteError(message string, err error) error {
	return &RemoteError{Message: message, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
