package errors

import (
	"fmt"
)

// WeftError is the structured error type for Weft.
// It carries the context needed for error handling, logging, and
// user presentation.
type WeftError struct {
	// Code is the unique error code (e.g., "ERR_303_CIRCULAR_INCLUDE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Directive, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *WeftError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *WeftError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with WeftError.
func (e *WeftError) Is(target error) bool {
	if t, ok := target.(*WeftError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *WeftError) WithDetail(key, value string) *WeftError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new WeftError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *WeftError {
	return &WeftError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a WeftError from an existing error.
// The error's message becomes the WeftError message.
func Wrap(code string, err error) *WeftError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// MalformedTag creates an error for a directive missing a required argument.
func MalformedTag(name string) *WeftError {
	return New(ErrCodeMalformedTag,
		fmt.Sprintf("directive %q requires an argument", name), nil)
}

// UnknownTag creates an error for an unrecognized directive name.
func UnknownTag(name string) *WeftError {
	return New(ErrCodeUnknownTag,
		fmt.Sprintf("unknown directive %q", name), nil)
}

// CircularInclude creates an error for an include path repeating within
// one expansion chain.
func CircularInclude(path string) *WeftError {
	return New(ErrCodeCircularInclude,
		fmt.Sprintf("circular include detected for %q", path), nil)
}

// IncludeNotFound creates an error for an include whose target does
// not exist.
func IncludeNotFound(path string) *WeftError {
	return New(ErrCodeIncludeNotFound,
		fmt.Sprintf("include target %q not found", path), nil)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *WeftError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InvalidConfiguration creates an error for an unusable engine configuration.
func InvalidConfiguration(message string) *WeftError {
	return New(ErrCodeInvalidConfiguration, message, nil)
}

// UnexpectedFailure creates an error for a panic or other failure that
// escaped the per-file processing step.
func UnexpectedFailure(message string, cause error) *WeftError {
	return New(ErrCodeUnexpectedFailure, message, cause)
}

// GetCode extracts the error code from a WeftError.
// Returns empty string if not a WeftError.
func GetCode(err error) string {
	if we, ok := err.(*WeftError); ok {
		return we.Code
	}
	return ""
}

// GetCategory extracts the category from a WeftError.
// Returns empty string if not a WeftError.
func GetCategory(err error) Category {
	if we, ok := err.(*WeftError); ok {
		return we.Category
	}
	return ""
}
