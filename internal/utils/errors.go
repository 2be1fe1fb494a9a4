package utils

import (
	"errors"
	"fmt"
)

// AppError wraps an operation, the bundle it ran against, a human-facing
// message, and the underlying error.
type AppError struct {
	Op    string
	Input string
	Msg   string
	Err   error
}

func (e *AppError) Error() string {
	prefix := e.Op
	if e.Input != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Input)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewInputError constructs an AppError tied to an input bundle.
func NewInputError(op, input, msg string, err error) error {
	return &AppError{Op: op, Input: input, Msg: msg, Err: err}
}

// InputOf returns the input recorded on the first AppError in err's chain.
func InputOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Input
	}
	return ""
}
