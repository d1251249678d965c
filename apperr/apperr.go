package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so handlers can map it to an HTTP status
// without string matching.
type Kind int

const (
	Validation Kind = iota + 1
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	Internal
)

func (k Kind) HTTPStatus() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation detail, keyed by field name.
	Fields map[string]string
	// Reason is a stable machine-readable code for clients that branch
	// on the cause, e.g. "notJoined" or "eventNotEnded".
	Reason string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func ValidationFailed(fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: "validation failed", Fields: fields}
}

func WithReason(kind Kind, msg, reason string) *Error {
	return &Error{Kind: kind, Message: msg, Reason: reason}
}

// KindOf returns the Kind of err, or Internal for anything untyped.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}
