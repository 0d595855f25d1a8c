// Package apperr defines the error taxonomy surfaced by application
// operations: NotAuthenticated, Unauthorized, NotFound and Invalid.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindNotAuthenticated means no identity was presented.
	KindNotAuthenticated Kind = iota + 1
	// KindUnauthorized means a role or ownership check failed.
	KindUnauthorized
	// KindNotFound means a referenced entity is absent.
	KindNotFound
	// KindInvalid means the input failed validation.
	KindInvalid
)

// Error is an application error with a classification and a caller-facing
// message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is makes errors.Is match two application errors of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// NotAuthenticated reports a missing identity.
func NotAuthenticated() error {
	return &Error{Kind: KindNotAuthenticated, Msg: "not authenticated"}
}

// Unauthorized reports a failed role or ownership check.
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// NotFound reports an absent entity, e.g. NotFound("expense").
func NotFound(entity string) error {
	return &Error{Kind: KindNotFound, Msg: entity + " not found"}
}

// Invalid reports a validation failure.
func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps an error to the HTTP status code handlers should write.
// Unclassified errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
