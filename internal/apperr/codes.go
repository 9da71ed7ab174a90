package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable, client-visible category of a failure.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeConfiguration       Code = "CONFIGURATION_ERROR"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamTimeout     Code = "UPSTREAM_TIMEOUT"
	CodeUpstreamEmpty       Code = "UPSTREAM_EMPTY"
	CodeMalformedResponse   Code = "MALFORMED_RESPONSE"
	CodeSchemaViolation     Code = "SCHEMA_VIOLATION"
	CodePersistence         Code = "PERSISTENCE_ERROR"
	CodeInternal            Code = "INTERNAL"
)

// Error is a categorized failure carried through the pipeline up to the
// HTTP layer.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithContext attaches a diagnostic key/value that is logged but never
// rendered to clients.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(cause error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

func NotFound(msg string) *Error        { return New(CodeNotFound, msg) }
func InvalidArgument(msg string) *Error { return New(CodeInvalidArgument, msg) }
func Unauthorized(msg string) *Error    { return New(CodeUnauthorized, msg) }

func Configuration(msg string, cause error) *Error {
	return Wrap(cause, CodeConfiguration, msg)
}

func Persistence(msg string, cause error) *Error {
	return Wrap(cause, CodePersistence, msg)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf extracts the code of err, or CodeInternal for uncategorized errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a code to the status the public API documents for it.
// Upstream and schema failures are all reported as 500.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to render to clients: the causes of
// upstream and persistence errors are kept out of responses.
func PublicMessage(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	return "internal error"
}
