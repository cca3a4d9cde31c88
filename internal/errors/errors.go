package errors

import (
	"fmt"
)

// TagError is the structured error type for tagvault.
// It provides context for error handling, logging, and user presentation.
type TagError struct {
	// Code is the unique error code (e.g., "ERR_402_DIMENSION_MISMATCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Provider, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs
	// (which tag, which note, which step).
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *TagError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *TagError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with TagError.
func (e *TagError) Is(target error) bool {
	if t, ok := target.(*TagError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *TagError) WithDetail(key, value string) *TagError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *TagError) WithSuggestion(suggestion string) *TagError {
	e.Suggestion = suggestion
	return e
}

// New creates a new TagError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *TagError {
	return &TagError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a TagError from an existing error.
// The error's message becomes the TagError message.
func Wrap(code string, err error) *TagError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StoreError creates a store-related error.
func StoreError(message string, cause error) *TagError {
	return New(ErrCodeStoreOpen, message, cause)
}

// ProviderError creates an embedding-provider error.
// Provider errors degrade gracefully and are retryable.
func ProviderError(message string, cause error) *TagError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *TagError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if te, ok := err.(*TagError); ok {
		return te.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if te, ok := err.(*TagError); ok {
		return te.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a TagError.
// Returns empty string if not a TagError.
func GetCode(err error) string {
	if te, ok := err.(*TagError); ok {
		return te.Code
	}
	return ""
}
