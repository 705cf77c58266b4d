package errors

import (
	"errors"
	"fmt"

	"gollh/domain/core"
)

// AppError represents a structured error at the configuration, adapter and
// command boundary.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	code := classify(err)
	if code == "" {
		code = CodeInternalError
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain. Errors
// that carry no AppError are classified by the domain sentinel they wrap,
// and "UNKNOWN" otherwise.
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if code := classify(err); code != "" {
		return code
	}
	return "UNKNOWN"
}

func classify(err error) string {
	switch {
	case core.IsValidationError(err):
		return CodeValidationError
	case core.IsNotFoundError(err):
		return CodeNotFound
	case core.IsConsistencyError(err):
		return CodeConsistency
	case core.IsNumericalError(err):
		return CodeNumerical
	case errors.Is(err, core.ErrNotImplemented):
		return CodeNotImplemented
	}
	return ""
}

// ExitCode maps an error onto a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCode(err) {
	case CodeConfigInvalid, CodeInvalidInput, CodeValidationError:
		return 2
	case CodeDatabaseError, CodeExportError:
		return 3
	case CodeNumerical:
		return 4
	}
	return 1
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeExportError     = "EXPORT_ERROR"
	CodeConsistency     = "CONSISTENCY_ERROR"
	CodeNumerical       = "NUMERICAL_ERROR"
	CodeNotImplemented  = "NOT_IMPLEMENTED"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func ExportError(target string, cause error) *AppError {
	return &AppError{
		Code:    CodeExportError,
		Message: fmt.Sprintf("failed to export to %s", target),
		Cause:   cause,
	}
}
