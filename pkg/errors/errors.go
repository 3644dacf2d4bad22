package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes surfaced by the record services
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrInvalidInput
	ErrInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrInvalidInput:
		return "INVALID_INPUT"
	case ErrInternal:
		return "INTERNAL"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// NotFound reports that the addressed record does not exist.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: message,
	}
}

// NotFoundf is NotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) *AppError {
	return NotFound(fmt.Sprintf(format, args...))
}

func InvalidInput(message string, err error) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal error",
		Err:     err,
	}
}

// Code returns the code of the first AppError in err's chain, or
// ErrInternal when there is none.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func IsNotFound(err error) bool {
	return is(err, ErrNotFound)
}

func IsInvalidInput(err error) bool {
	return is(err, ErrInvalidInput)
}

func IsInternal(err error) bool {
	return is(err, ErrInternal)
}

func is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
