package apperrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Category groups codes by how callers should react to them.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryUpstream   Category = "upstream"
	CategoryParse      Category = "parse"
	CategoryInternal   Category = "internal"
)

// Code is the stable machine-readable identifier carried by every failure.
type Code string

const (
	CodeValidation          Code = "VALIDATION_FAILED"
	CodeAccountNotFound     Code = "ACCOUNT_NOT_FOUND"
	CodeImportNotFound      Code = "IMPORT_NOT_FOUND"
	CodeTransactionNotFound Code = "TRANSACTION_NOT_FOUND"
	CodeMatchNotFound       Code = "MATCH_NOT_FOUND"
	CodeCandidateNotFound   Code = "CANDIDATE_NOT_FOUND"
	CodeDuplicateImport     Code = "DUPLICATE_IMPORT"
	CodeDuplicateIBAN       Code = "DUPLICATE_IBAN"
	CodeMatchConflict       Code = "MATCH_CONFLICT"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeUnsupportedBank     Code = "UNSUPPORTED_BANK"
	CodeUpstream            Code = "UPSTREAM_FAILURE"
	CodeParse               Code = "PARSE_FAILED"
	CodeInternal            Code = "INTERNAL"
)

// Error is the typed failure returned at every engine operation boundary.
type Error struct {
	Category Category               `json:"-"`
	Code     Code                   `json:"code"`
	Message  string                 `json:"message"`
	Context  map[string]interface{} `json:"-"`
	Cause    error                  `json:"-"`
	stack    errors.StackTrace
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StackTrace exposes the capture point for logging; it is never rendered to callers.
func (e *Error) StackTrace() errors.StackTrace {
	return e.stack
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// HTTPStatus maps the category onto a transport status code.
func (e *Error) HTTPStatus() int {
	switch e.Category {
	case CategoryValidation, CategoryParse:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new Error
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
		stack:    errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with a category and code.
func Wrap(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    err,
		stack:    errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

func Validation(format string, args ...interface{}) *Error {
	return New(CategoryValidation, CodeValidation, fmt.Sprintf(format, args...))
}

func NotFound(code Code, resource string, id interface{}) *Error {
	return New(CategoryNotFound, code, fmt.Sprintf("%s %v not found", resource, id)).
		WithContext("resource", resource).
		WithContext("id", id)
}

func Conflict(code Code, format string, args ...interface{}) *Error {
	return New(CategoryConflict, code, fmt.Sprintf(format, args...))
}

func Upstream(source string, err error) *Error {
	return Wrap(err, CategoryUpstream, CodeUpstream, fmt.Sprintf("candidate source %s failed", source)).
		WithContext("source", source)
}

// Internal hides the storage error behind a generic message; the cause stays available for logs.
func Internal(operation string, err error) *Error {
	return Wrap(err, CategoryInternal, CodeInternal, fmt.Sprintf("internal error during %s", operation)).
		WithContext("operation", operation)
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// WrapIfNeeded leaves typed errors untouched and turns anything else into an internal error.
func WrapIfNeeded(err error, operation string) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal(operation, err)
}
