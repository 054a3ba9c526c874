// Package errors provides structured error handling for Weft.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Directive errors (tag parsing and expansion)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryDirective indicates tag parsing and expansion errors.
	CategoryDirective Category = "DIRECTIVE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileRead     = "ERR_202_FILE_READ"
	ErrCodeOutputWrite  = "ERR_203_OUTPUT_WRITE"

	// Directive errors (300-399)
	ErrCodeMalformedTag    = "ERR_301_MALFORMED_TAG"
	ErrCodeUnknownTag      = "ERR_302_UNKNOWN_TAG"
	ErrCodeCircularInclude = "ERR_303_CIRCULAR_INCLUDE"
	ErrCodeIncludeNotFound = "ERR_304_INCLUDE_NOT_FOUND"

	// Validation errors (400-499)
	ErrCodeInvalidConfiguration = "ERR_401_INVALID_CONFIGURATION"
	ErrCodeInvalidPath          = "ERR_402_INVALID_PATH"

	// Internal errors (500-599)
	ErrCodeInternal          = "ERR_501_INTERNAL"
	ErrCodeUnexpectedFailure = "ERR_502_UNEXPECTED_FAILURE"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "301" from "ERR_301_MALFORMED_TAG")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryDirective
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigNotFound, ErrCodeConfigInvalid:
		// Config problems degrade to defaults rather than aborting.
		return SeverityWarning
	default:
		return SeverityError
	}
}
