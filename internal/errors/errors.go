package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// AppError represents a structured application error
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

// Error codes surfaced to callers of a submission
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeComputeError    = "COMPUTE_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodePersistence     = "PERSISTENCE_ERROR"
	CodeCancelled       = "CANCELLED"
	CodeDataUnavailable = "DATA_UNAVAILABLE"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	if appErr, ok := As(err); ok {
		code = appErr.Code
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
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// As finds the outermost AppError in the chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if err carries an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func hasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsValidation reports whether err rejected a submission before dispatch
func IsValidation(err error) bool { return hasCode(err, CodeValidationError) }

// IsCompute reports whether err aggregates compute job failures
func IsCompute(err error) bool { return hasCode(err, CodeComputeError) }

// IsTimeout reports whether err ended a submission by timeout
func IsTimeout(err error) bool { return hasCode(err, CodeTimeout) }

// IsPersistence reports whether err came from the result sink
func IsPersistence(err error) bool { return hasCode(err, CodePersistence) }

// IsCancelled reports whether err reflects a user cancellation
func IsCancelled(err error) bool { return hasCode(err, CodeCancelled) }

// IsNotFound reports whether err reports a missing resource
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// ConfigInvalid reports an invalid configuration
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// DatabaseError reports a storage failure
func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

// Validation reports a rejected submission
func Validation(cause error) *AppError {
	return &AppError{Code: CodeValidationError, Message: "invalid submission", Cause: cause}
}

// Compute aggregates the failures of individual jobs into one error
func Compute(jobErrors ...string) *AppError {
	msg := "all compute jobs failed"
	if len(jobErrors) > 0 {
		msg = fmt.Sprintf("%s:\n  %s", msg, strings.Join(jobErrors, "\n  "))
	}
	return New(CodeComputeError, msg)
}

// Timeout reports a submission that did not finish within d
func Timeout(d time.Duration) *AppError {
	return New(CodeTimeout, fmt.Sprintf("submission did not complete within %s", d))
}

// Persistence reports a result sink failure at the given stage (log, analytic, statistic)
func Persistence(stage string, cause error) *AppError {
	return &AppError{
		Code:    CodePersistence,
		Message: fmt.Sprintf("failed to persist %s", stage),
		Cause:   cause,
	}
}

// Cancelled reports a user cancellation
func Cancelled() *AppError {
	return New(CodeCancelled, "submission cancelled")
}

// DataUnavailable reports that the data of a variable could not be read
func DataUnavailable(variable string, cause error) *AppError {
	return &AppError{
		Code:    CodeDataUnavailable,
		Message: fmt.Sprintf("data for variable %s unavailable", variable),
		Cause:   cause,
	}
}

// NotFound reports a missing resource
func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InternalError reports an unexpected failure
func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
