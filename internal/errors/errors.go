package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a lanequote error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrUnsupportedTable ErrorCode = "UNSUPPORTED_TABLE" // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrMissingColumns   ErrorCode = "MISSING_COLUMNS"   // 422
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// QuoteError represents a structured error with code, status, and details.
type QuoteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *QuoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *QuoteError {
	return &QuoteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidFields creates a 400 error listing the request fields that failed validation.
func NewInvalidFields(fields map[string]string) *QuoteError {
	return &QuoteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: fmt.Sprintf("invalid request fields: %s", joinKeys(fields)),
		Details: map[string]any{"fields": fields},
	}
}

// NewUnsupportedTable creates a 400 error for an import into a table that is not reference data.
func NewUnsupportedTable(table string) *QuoteError {
	return &QuoteError{
		Code:    ErrUnsupportedTable,
		Status:  400,
		Message: fmt.Sprintf("table %q cannot be imported (allowed: price_list, rate_list, terms_list)", table),
		Details: map[string]any{"table": table},
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(identifier string) *QuoteError {
	return &QuoteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing input file.
func NewFileNotFound(path string) *QuoteError {
	return &QuoteError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewMissingColumns creates a 422 error when a workbook lacks required columns.
func NewMissingColumns(missing []string) *QuoteError {
	return &QuoteError{
		Code:    ErrMissingColumns,
		Status:  422,
		Message: fmt.Sprintf("file is missing required columns: %v", missing),
		Details: map[string]any{"missing_columns": missing},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *QuoteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &QuoteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a QuoteError with the given code.
func Is(err error, code ErrorCode) bool {
	var qErr *QuoteError
	if stderrors.As(err, &qErr) {
		return qErr.Code == code
	}
	return false
}

// As converts any error to a QuoteError, wrapping unknown errors as internal.
func As(err error) *QuoteError {
	var qErr *QuoteError
	if stderrors.As(err, &qErr) {
		return qErr
	}
	return NewInternal(err)
}

// joinKeys renders map keys in sorted order.
func joinKeys(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
