// Package errors provides structured error types for missionlens.
// All errors include a category, code and message so callers can tell
// fatal load failures apart from per-row and caller-contract errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryLoad     ErrorCategory = "LOAD"
	ErrCategoryParse    ErrorCategory = "PARSE"
	ErrCategoryQuery    ErrorCategory = "QUERY"
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Load codes
	CodeSourceMissing    = "SOURCE_MISSING"
	CodeSourceUnreadable = "SOURCE_UNREADABLE"
	CodeMissingColumns   = "MISSING_COLUMNS"
	CodeUnsupportedKind  = "UNSUPPORTED_SOURCE"

	// Parse codes
	CodeMalformedRow = "MALFORMED_ROW"

	// Query codes
	CodeInvalidRange    = "INVALID_RANGE"
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Sentinels for errors.Is matching on category and code.
var (
	ErrInvalidRange    = New(ErrCategoryQuery, CodeInvalidRange, "invalid range")
	ErrInvalidArgument = New(ErrCategoryQuery, CodeInvalidArgument, "invalid argument")
	ErrSourceMissing   = New(ErrCategoryLoad, CodeSourceMissing, "source missing")
	ErrMissingColumns  = New(ErrCategoryLoad, CodeMissingColumns, "missing columns")
)

// MissionError is the structured error type used throughout the system.
type MissionError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *MissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *MissionError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *MissionError) Is(target error) bool {
	var t *MissionError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new MissionError.
func New(category ErrorCategory, code, message string) *MissionError {
	return &MissionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new MissionError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *MissionError {
	return &MissionError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *MissionError) WithDetails(details map[string]interface{}) *MissionError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsFatal reports whether err must abort startup. Only load failures are fatal;
// row, query and config errors are reported to the caller that caused them.
func IsFatal(err error) bool {
	return GetCategory(err) == ErrCategoryLoad
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a MissionError.
func GetCategory(err error) ErrorCategory {
	var me *MissionError
	if errors.As(err, &me) {
		return me.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a MissionError.
func GetCode(err error) string {
	var me *MissionError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// Convenience constructors for common errors.

func NewLoadError(code, message string, cause error) *MissionError {
	return Wrap(ErrCategoryLoad, code, message, cause)
}

func NewInvalidRangeError(start, end int) *MissionError {
	return New(ErrCategoryQuery, CodeInvalidRange,
		fmt.Sprintf("year range %d..%d is empty", start, end)).
		WithDetails(map[string]interface{}{"start": start, "end": end})
}

// NewYearSpanError reports a year range wider than max years, including one
// whose width overflows int.
func NewYearSpanError(start, end, max int) *MissionError {
	return New(ErrCategoryQuery, CodeInvalidRange,
		fmt.Sprintf("year range %d..%d spans more than %d years", start, end, max)).
		WithDetails(map[string]interface{}{"start": start, "end": end, "max_years": max})
}

func NewInvalidArgumentError(message string) *MissionError {
	return New(ErrCategoryQuery, CodeInvalidArgument, message)
}

func NewConfigError(message string, cause error) *MissionError {
	return Wrap(ErrCategoryConfig, CodeInvalidConfig, message, cause)
}

func NewInternalError(message string, cause error) *MissionError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}

// RowParseError describes a source row that could not be turned into a mission.
// The loader excludes such rows and reports them; they never abort a load.
type RowParseError struct {
	// Line is the 1-based line (CSV) or row number (SQLite) of the row
	Line int `json:"line"`

	// Column is the canonical column that failed, empty for structural errors
	Column string `json:"column,omitempty"`

	// Value is the offending raw value
	Value string `json:"value,omitempty"`

	// Reason is a short human-readable explanation
	Reason string `json:"reason"`
}

func (e *RowParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("row %d: column %s: %s (value %q)", e.Line, e.Column, e.Reason, e.Value)
}

// Is lets errors.Is match a RowParseError against the PARSE:MALFORMED_ROW category.
func (e *RowParseError) Is(target error) bool {
	var t *MissionError
	if errors.As(target, &t) {
		return t.Category == ErrCategoryParse && t.Code == CodeMalformedRow
	}
	return false
}

// ErrMalformedRow matches any *RowParseError via errors.Is.
var ErrMalformedRow = New(ErrCategoryParse, CodeMalformedRow, "malformed row")
