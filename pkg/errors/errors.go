package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an application error
type ErrorCode string

const (
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodePolicyViolation   ErrorCode = "POLICY_VIOLATION"
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeAmbiguousInput    ErrorCode = "AMBIGUOUS_INPUT"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeInternal          ErrorCode = "INTERNAL"
)

// AppError represents an application error with a typed code. Guard and
// invariant failures surface as AppErrors so callers can branch on the code
// rather than parsing messages.
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

// Is matches AppErrors by code so errors.Is works across wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// CodeOf extracts the error code, or CodeInternal for unknown errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Error constructors

func InvalidInput(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func PolicyViolation(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodePolicyViolation, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Conflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func AmbiguousInput(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeAmbiguousInput, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal error", Err: err}
}
