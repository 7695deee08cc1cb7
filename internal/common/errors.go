package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes for the failure taxonomy. Asynchronous stage failures are
// recorded on the job record; the rest surface directly to the caller.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeNotReady        = "NOT_READY"
	CodeTransformation  = "TRANSFORMATION_ERROR"
	CodeConversion      = "CONVERSION_ERROR"
	CodeMissingArtifact = "MISSING_ARTIFACT"
	CodeAuthentication  = "AUTHENTICATION_ERROR"
	CodeSubmission      = "SUBMISSION_ERROR"
	CodeStorage         = "STORAGE_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotReady     = errors.New("job not ready")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func TransformationError(message string, cause error) *AppError {
	return NewAppError(CodeTransformation, message, cause)
}

func ConversionError(message string, cause error) *AppError {
	return NewAppError(CodeConversion, message, cause)
}

func MissingArtifactError(message string) *AppError {
	return NewAppError(CodeMissingArtifact, message, nil)
}

func AuthenticationError(message string, cause error) *AppError {
	return NewAppError(CodeAuthentication, message, cause)
}

func SubmissionError(message string, cause error) *AppError {
	return NewAppError(CodeSubmission, message, cause)
}

func StorageError(message string, cause error) *AppError {
	return NewAppError(CodeStorage, message, cause)
}

func ValidationErrorf(format string, args ...interface{}) *AppError {
	return NewAppError(CodeValidation, fmt.Sprintf(format, args...), ErrInvalidInput)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf extracts the taxonomy code from err, or empty when err is not an AppError.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
