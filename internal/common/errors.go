// Package common holds the error types, logging setup and retry helper
// shared by every biweekly package.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors checked with errors.Is across packages.
var (
	ErrNotFound       = errors.New("not found")
	ErrDocumentExists = errors.New("budget document already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrMissingConfig  = errors.New("missing configuration")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// UserError carries a message meant for the operator alongside the
// underlying cause, which is only logged.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a message for the operator.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}

// AsUserError returns the outermost UserError in err's chain, if any.
func AsUserError(err error) (*UserError, bool) {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr, true
	}
	return nil, false
}

// IsRetryable reports whether a failed remote call may be attempted again.
// Rate limits and deadlines always are; a RetryableError decides for itself.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return false
}
