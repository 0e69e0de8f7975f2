package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable category of an error. Clients branch on it
// instead of matching message strings.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindAlreadyVoted Kind = "already_voted"
	KindConflict     Kind = "conflict"
	KindStorage      Kind = "storage"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// Error pairs a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so errors.Is(err, apperr.ErrAlreadyVoted) works
// against any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// HTTPStatus maps the kind onto a response status code.
func (e *Error) HTTPStatus() int {
	return StatusOf(e.Kind)
}

// Sentinels for errors.Is checks; only Kind is compared.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrAlreadyVoted = &Error{Kind: KindAlreadyVoted}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrStorage      = &Error{Kind: KindStorage}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func AlreadyVoted() *Error               { return New(KindAlreadyVoted, "Already voted") }

func Storage(message string, err error) *Error {
	return Wrap(KindStorage, message, err)
}

// StatusOf returns the HTTP status for a kind.
func StatusOf(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindAlreadyVoted, KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON payload written for a failed request.
type Body struct {
	Error string `json:"error"`
	Code  Kind   `json:"code"`
}

// ToBody converts any error into a response status and body. Messages of
// non-domain errors are not leaked to the client.
func ToBody(err error) (int, Body) {
	var e *Error
	if errors.As(err, &e) {
		msg := e.Message
		if msg == "" {
			msg = string(e.Kind)
		}
		return e.HTTPStatus(), Body{Error: msg, Code: e.Kind}
	}
	return http.StatusInternalServerError, Body{Error: "Unexpected server error", Code: KindInternal}
}
