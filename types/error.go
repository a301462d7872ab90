package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the scheduler.
type ErrorCode string

// Scheduler error codes
const (
	// ErrConfiguration marks a structurally invalid plan, such as a node that
	// references an unknown worker identity. Never retried.
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrLoad marks a worker whose backing resource could not be constructed.
	ErrLoad ErrorCode = "LOAD"
	// ErrWorkerExecution marks a worker that failed while producing output.
	ErrWorkerExecution ErrorCode = "WORKER_EXECUTION"
	// ErrPlanGeneration marks planner output that could not become a plan.
	ErrPlanGeneration ErrorCode = "PLAN_GENERATION"
	// ErrExtraction marks text that carried no parseable JSON object.
	ErrExtraction ErrorCode = "EXTRACTION"
	// ErrInvalidPlan marks a plan document with missing or mistyped fields.
	ErrInvalidPlan ErrorCode = "INVALID_PLAN"
	// ErrStore marks a report persistence failure.
	ErrStore ErrorCode = "STORE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Worker  string    `json:"worker,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithWorker sets the worker identity the error is about.
func (e *Error) WithWorker(key string) *Error {
	e.Worker = key
	return e
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether any *Error in err's chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetErrorCode extracts the outermost error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// =============================================================================
// Constructors
// =============================================================================

// NewConfigurationError reports an unknown or duplicate worker identity.
func NewConfigurationError(key, message string) *Error {
	return NewError(ErrConfiguration, message).WithWorker(key)
}

// NewLoadError reports a worker that could not be constructed or set up.
func NewLoadError(key string, cause error) *Error {
	return NewError(ErrLoad, fmt.Sprintf("failed to load worker %q", key)).
		WithWorker(key).
		WithCause(cause)
}

// NewWorkerExecutionError reports a worker call that failed.
func NewWorkerExecutionError(key string, cause error) *Error {
	return NewError(ErrWorkerExecution, fmt.Sprintf("worker %q failed", key)).
		WithWorker(key).
		WithCause(cause)
}

// NewPlanGenerationError reports planner output that was rejected.
func NewPlanGenerationError(message string) *Error {
	return NewError(ErrPlanGeneration, message)
}

// NewExtractionError reports text that carried no usable JSON object.
func NewExtractionError(message string) *Error {
	return NewError(ErrExtraction, message)
}

// NewInvalidPlanError reports a malformed plan document.
func NewInvalidPlanError(message string) *Error {
	return NewError(ErrInvalidPlan, message)
}
