package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to translate it (HTTP status, UI notice).
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindBadRequest   Kind = "bad_request"
)

// Error is the error type returned by the domain packages for caller-facing failures.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind and code, so copies made by WithField still match
// their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithField returns a copy of e that names the offending input field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

func newErr(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: message, Field: field}
}

func NotFound(code, message string) *Error {
	return newErr(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return newErr(KindConflict, code, message)
}

func Unauthorized(code, message string) *Error {
	return newErr(KindUnauthorized, code, message)
}

func BadRequest(code, message string) *Error {
	return newErr(KindBadRequest, code, message)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the Kind of err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
