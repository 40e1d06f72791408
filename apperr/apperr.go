// Package apperr defines the error taxonomy shared by controllers and the
// top-level error handler.
package apperr

import (
	"errors"
	"net/http"
	"runtime/debug"
)

type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindBadRequest
	KindUnauthenticated
	KindTokenExpired
	KindForbidden
	KindNotFound
	KindConflict
	KindUpload
)

// FieldError is one entry of a field-keyed validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
	// Stack is captured for server errors only.
	Stack string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBadRequest, KindUpload:
		return http.StatusBadRequest
	case KindUnauthenticated, KindTokenExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

func Unauthenticated(msg string) *Error {
	if msg == "" {
		msg = "Not authorized, no token"
	}
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func TokenExpired() *Error {
	return &Error{Kind: KindTokenExpired, Message: "Token expired"}
}

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "Access denied"
	}
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Upload(msg string) *Error {
	return &Error{Kind: KindUpload, Message: msg}
}

func Server(msg string, err error) *Error {
	return &Error{Kind: KindServer, Message: msg, Err: err, Stack: string(debug.Stack())}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
