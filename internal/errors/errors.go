package errors

import (
	stderrors "errors"
	"fmt"
)

// IndexError is the structured error type for corpusidx.
// It provides context for logging and for the message printed by the CLI.
type IndexError struct {
	// Code is the unique error code (e.g., "ERR_105_INVALID_SHARD").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an IndexError with the same code.
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *IndexError) WithDetail(key, value string) *IndexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *IndexError) WithSuggestion(suggestion string) *IndexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new IndexError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *IndexError {
	return &IndexError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an IndexError from an existing error.
func Wrap(code string, err error) *IndexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *IndexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *IndexError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *IndexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *IndexError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first IndexError in err's chain.
func As(err error) (*IndexError, bool) {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the run.
func IsFatal(err error) bool {
	if ie, ok := As(err); ok {
		return ie.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an IndexError.
// Returns empty string if err carries no IndexError.
func GetCode(err error) string {
	if ie, ok := As(err); ok {
		return ie.Code
	}
	return ""
}

// GetCategory extracts the category from an IndexError.
func GetCategory(err error) Category {
	if ie, ok := As(err); ok {
		return ie.Category
	}
	return ""
}
