// Package apperr carries the error taxonomy shared by the order, payment and
// settlement services. Every failure that crosses a service boundary is an
// *Error with a Kind the transport layer can map to a response.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalidState      Kind = "invalid_state"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

type Metadata struct {
	HTTPStatus    int
	PublicMessage string
}

var metadataByKind = map[Kind]Metadata{
	KindValidation:        {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "validation failed"},
	KindUnauthorized:      {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	KindForbidden:         {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	KindNotFound:          {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	KindInvalidTransition: {HTTPStatus: http.StatusBadRequest, PublicMessage: "transition not allowed"},
	KindInvalidState:      {HTTPStatus: http.StatusBadRequest, PublicMessage: "invalid state"},
	KindConflict:          {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	KindInternal:          {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error"},
}

func MetadataFor(kind Kind) Metadata {
	if meta, ok := metadataByKind[kind]; ok {
		return meta
	}
	return metadataByKind[KindInternal]
}

type Error struct {
	kind    Kind
	message string
	details map[string]string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return New(kind, message)
	}
	return &Error{kind: kind, message: message, cause: err}
}

func (e *Error) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() map[string]string {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches per-field messages, used for request validation.
func (e *Error) WithDetails(details map[string]string) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// KindOf reports the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if typed := As(err); typed != nil {
		return typed.Kind()
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
