// Package resources maps the DevDox REST API onto one service per resource kind.
//
// Services never expose transport errors verbatim. Every failure is logged with
// its cause and returned as an *Error whose message is safe to show to users.
package resources

import (
	"context"
	"errors"
	"net/http"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/web/api"
)

// Kind classifies a failure.
type Kind string

const (
	KindNetwork         Kind = "NETWORK_ERROR"
	KindUnauthenticated Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindValidation      Kind = "VALIDATION_ERROR"
	KindCanceled        Kind = "CANCELED"
	KindFailed          Kind = "INTERNAL_ERROR"
)

// User-facing messages shared by every service.
const (
	MsgNetwork         = "Network error: unable to reach the DevDox API"
	MsgUnauthenticated = "Authentication failed: please sign in again"
	MsgNoCredential    = "Authentication token not available"
	MsgForbidden       = "You don't have permission to perform this action"
	MsgCanceled        = "Request was cancelled"
)

// Error is a domain failure with a presentable message.
type Error struct {
	Op      string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Kind, so errors.Is(err, ErrNotFound) works for any operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Kind == e.Kind
}

// HTTPStatusCode maps the kind onto the status the dashboard responds with.
func (e *Error) HTTPStatusCode() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is.
var (
	ErrNetwork         = &Error{Kind: KindNetwork}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrCanceled        = &Error{Kind: KindCanceled}
	ErrFailed          = &Error{Kind: KindFailed}
)

// NewError builds an *Error.
func NewError(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// MissingCredential is returned when the identity provider issued no token.
func MissingCredential(op string) *Error {
	return NewError(op, KindUnauthenticated, MsgNoCredential)
}

// KindOf returns the kind of err, or KindFailed for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailed
}

// Message returns the presentable text of err. Foreign errors get fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}

// translate classifies a low-level failure. entity names the resource for
// not-found messages; failMsg is used for everything unclassified.
func translate(op, entity, failMsg string, err error) *Error {
	var already *Error
	switch {
	case errors.As(err, &already):
		return already
	case errors.Is(err, identity.ErrNoCredential):
		return MissingCredential(op)
	case errors.Is(err, context.Canceled):
		return NewError(op, KindCanceled, MsgCanceled)
	case errors.Is(err, api.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return NewError(op, KindNetwork, MsgNetwork)
	case api.IsUnauthorized(err):
		return NewError(op, KindUnauthenticated, MsgUnauthenticated)
	case api.IsForbidden(err):
		return NewError(op, KindForbidden, MsgForbidden)
	case api.IsNotFound(err):
		return NewError(op, KindNotFound, entity+" not found")
	default:
		return NewError(op, KindFailed, failMsg)
	}
}
