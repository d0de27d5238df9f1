// Package apperr holds the error taxonomy shared by the clients, the location
// provider and the controllers. Controllers are the only layer that turns an
// Error into user-facing text.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAPI
	KindDecoding
	KindInvalidRequest
	KindNoResults
	KindNotAuthenticated
	KindInvalidCredentials
	KindUserNotFound
	KindUserAlreadyExists
	KindWeakPassword
	KindInvalidEmail
	KindDatabase
	KindPermissionDenied
	KindLocationUnavailable
	KindLocationFailed
	KindCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindNetwork:             "network",
	KindAPI:                 "api",
	KindDecoding:            "decoding",
	KindInvalidRequest:      "invalid request",
	KindNoResults:           "no results",
	KindNotAuthenticated:    "not authenticated",
	KindInvalidCredentials:  "invalid credentials",
	KindUserNotFound:        "user not found",
	KindUserAlreadyExists:   "user already exists",
	KindWeakPassword:        "weak password",
	KindInvalidEmail:        "invalid email",
	KindDatabase:            "database",
	KindPermissionDenied:    "permission denied",
	KindLocationUnavailable: "location unavailable",
	KindLocationFailed:      "location failed",
	KindCancelled:           "cancelled",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. StatusCode is set for KindAPI, Message carries
// raw provider text for KindUnknown and KindDatabase.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindAPI && e.StatusCode != 0:
		return fmt.Sprintf("api error: status code %d", e.StatusCode)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that the
// package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrAPI                 = &Error{Kind: KindAPI}
	ErrDecoding            = &Error{Kind: KindDecoding}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrNoResults           = &Error{Kind: KindNoResults}
	ErrNotAuthenticated    = &Error{Kind: KindNotAuthenticated}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials}
	ErrUserNotFound        = &Error{Kind: KindUserNotFound}
	ErrUserAlreadyExists   = &Error{Kind: KindUserAlreadyExists}
	ErrWeakPassword        = &Error{Kind: KindWeakPassword}
	ErrInvalidEmail        = &Error{Kind: KindInvalidEmail}
	ErrDatabase            = &Error{Kind: KindDatabase}
	ErrUnknown             = &Error{Kind: KindUnknown}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
	ErrLocationUnavailable = &Error{Kind: KindLocationUnavailable}
	ErrLocationFailed      = &Error{Kind: KindLocationFailed}
	ErrCancelled           = &Error{Kind: KindCancelled}
)

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func API(statusCode int) *Error {
	return &Error{Kind: KindAPI, StatusCode: statusCode}
}

func WithMessage(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUnknown, false
}
