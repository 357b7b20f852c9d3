package errors

import (
	stderrors "errors"
	"fmt"
)

// AncheckError is the structured error type for ancheck.
// It provides rich context for error handling, logging, and user presentation.
type AncheckError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Storage, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinel errors for errors.Is checks. They match any AncheckError
// carrying the same code.
var (
	ErrIndexingInProgress = New(ErrCodeIndexingInProgress, "Indexing is already in progress", nil)
	ErrStoreClosed        = New(ErrCodeStoreClosed, "index store is closed", nil)
	ErrFileNotFound       = New(ErrCodeFileNotFound, "file not found", nil)
)

// Error implements the error interface.
func (e *AncheckError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AncheckError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *AncheckError) Is(target error) bool {
	if t, ok := target.(*AncheckError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AncheckError) WithDetail(key, value string) *AncheckError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AncheckError) WithSuggestion(suggestion string) *AncheckError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AncheckError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *AncheckError {
	return &AncheckError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AncheckError from an existing error.
// The error's message becomes the AncheckError message.
func Wrap(code string, err error) *AncheckError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *AncheckError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates an index database error.
func StorageError(message string, cause error) *AncheckError {
	return New(ErrCodeStoreQuery, message, cause)
}

// NotFoundError creates a file-not-found error for path.
func NotFoundError(path string) *AncheckError {
	return New(ErrCodeFileNotFound, "File not found: "+path, nil).WithDetail("path", path)
}

// LaunchError creates a shell launch error.
func LaunchError(message string, cause error) *AncheckError {
	return New(ErrCodeLaunchFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *AncheckError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AncheckError {
	return New(ErrCodeInternal, message, cause)
}

// as finds the first AncheckError in err's chain.
func as(err error) (*AncheckError, bool) {
	var ae *AncheckError
	if err == nil || !stderrors.As(err, &ae) {
		return nil, false
	}
	return ae, true
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ae, ok := as(err); ok {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if ae, ok := as(err); ok {
		return ae.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an AncheckError.
// Returns empty string if not an AncheckError.
func GetCode(err error) string {
	if ae, ok := as(err); ok {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from an AncheckError.
// Returns empty string if not an AncheckError.
func GetCategory(err error) Category {
	if ae, ok := as(err); ok {
		return ae.Category
	}
	return ""
}
