// Package errors provides structured error types for the DynaRec system.
// All errors include a category, code, message, and optional cause for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategorySchema     ErrorCategory = "SCHEMA"
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryRecord     ErrorCategory = "RECORD"
	ErrCategoryStore      ErrorCategory = "STORE"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Schema codes
	CodeTableNotFound    = "TABLE_NOT_FOUND"
	CodeSchemaLoadFailed = "SCHEMA_LOAD_FAILED"
	CodeInvalidSlug      = "INVALID_SLUG"

	// Validation codes
	CodeValidationFailed = "VALIDATION_FAILED"

	// Record codes
	CodeNotPersisted     = "NOT_PERSISTED"
	CodeAlreadyDestroyed = "ALREADY_DESTROYED"

	// Store codes
	CodeStoreFailure = "STORE_FAILURE"
	CodeDocCorrupted = "DOC_CORRUPTED"
	CodeStoreClosed  = "STORE_CLOSED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// FieldFailure describes a single field that failed validation.
type FieldFailure struct {
	Field   string
	Message string
}

func (f FieldFailure) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// DynaRecError is the structured error type used throughout the system.
type DynaRecError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Failures []FieldFailure
	Cause    error
}

// Error returns a formatted error string.
func (e *DynaRecError) Error() string {
	msg := e.Message
	if len(e.Failures) > 0 {
		parts := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			parts[i] = f.String()
		}
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(parts, "; "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DynaRecError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *DynaRecError) Is(target error) bool {
	var t *DynaRecError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new DynaRecError.
func New(category ErrorCategory, code, message string) *DynaRecError {
	return &DynaRecError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new DynaRecError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *DynaRecError {
	return &DynaRecError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a DynaRecError.
func GetCategory(err error) ErrorCategory {
	var de *DynaRecError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a DynaRecError.
func GetCode(err error) string {
	var de *DynaRecError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetFailures extracts validation field failures from an error chain.
func GetFailures(err error) []FieldFailure {
	var de *DynaRecError
	if errors.As(err, &de) {
		return de.Failures
	}
	return nil
}

// Convenience constructors for common errors.

func NewTableNotFound(tableSlug string) *DynaRecError {
	return New(ErrCategorySchema, CodeTableNotFound, fmt.Sprintf("table %q does not exist", tableSlug))
}

func NewSchemaLoadError(schemaRef string, cause error) *DynaRecError {
	return Wrap(ErrCategorySchema, CodeSchemaLoadFailed, fmt.Sprintf("schema %q could not be loaded", schemaRef), cause)
}

func NewValidationError(failures []FieldFailure) *DynaRecError {
	e := New(ErrCategoryValidation, CodeValidationFailed, "data does not conform to schema")
	e.Failures = failures
	return e
}

func NewNotPersisted(tableSlug string) *DynaRecError {
	return New(ErrCategoryRecord, CodeNotPersisted, fmt.Sprintf("record in table %q was never saved", tableSlug))
}

func NewAlreadyDestroyed(tableSlug string) *DynaRecError {
	return New(ErrCategoryRecord, CodeAlreadyDestroyed, fmt.Sprintf("record in table %q has been destroyed", tableSlug))
}

func NewStoreError(message string, cause error) *DynaRecError {
	return Wrap(ErrCategoryStore, CodeStoreFailure, message, cause)
}

func NewInternalError(message string, cause error) *DynaRecError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
