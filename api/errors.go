// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-frames.

package api

import "fmt"

// Sentinel errors for the expected failure conditions of the resource layer.
// MemoryPressure and InvalidShape are recoverable; LifetimeViolation marks a
// programming error in a caller.
var (
	ErrMemoryPressure    = fmt.Errorf("allocation would exceed byte budget")
	ErrInvalidShape      = fmt.Errorf("invalid frame shape")
	ErrLifetimeViolation = fmt.Errorf("frame lifetime violation")
	ErrPoolClosed        = fmt.Errorf("frame pool is closed")
	ErrDeviceFailure     = fmt.Errorf("device allocation failed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeMemoryPressure
	ErrCodeInvalidShape
	ErrCodeLifetimeViolation
	ErrCodePoolClosed
	ErrCodeDeviceFailure
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps the code back to its sentinel so errors.Is works across layers.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeMemoryPressure:
		return ErrMemoryPressure
	case ErrCodeInvalidShape:
		return ErrInvalidShape
	case ErrCodeLifetimeViolation:
		return ErrLifetimeViolation
	case ErrCodePoolClosed:
		return ErrPoolClosed
	case ErrCodeDeviceFailure:
		return ErrDeviceFailure
	default:
		return nil
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
