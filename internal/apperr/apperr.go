// README: Error kinds shared by all modules; the bot and HTTP layers map kinds to replies.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindUnknown    Kind = ""
	KindUserInput  Kind = "user_input"
	KindResolution Kind = "resolution"
	KindConflict   Kind = "conflict"
	KindProvider   Kind = "provider"
	KindInvariant  Kind = "invariant"
	KindNotFound   Kind = "not_found"
)

// Error is a domain error tagged with a Kind. Sentinels are *Error values and
// are compared with errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap tags err with kind, keeping err reachable through errors.Is/As.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func UserInput(msg string) *Error { return New(KindUserInput, msg) }
func Resolution(msg string) *Error { return New(KindResolution, msg) }
func Conflict(msg string) *Error { return New(KindConflict, msg) }
func Invariant(msg string) *Error { return New(KindInvariant, msg) }
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

func Provider(msg string, err error) *Error {
	return Wrap(KindProvider, msg, err)
}

// KindOf returns the first Kind found in the error chain.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return KindUnknown
		}
		if e.Kind != KindUnknown {
			return e.Kind
		}
		err = e.Err
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code used by the HTTP layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUserInput, KindResolution:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindInvariant:
		return http.StatusConflict
	case KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
