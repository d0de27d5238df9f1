package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bobby-s-dev/weather-client/internal/apperr"
)

// authErrorPhrases classifies the auth backend's human-readable messages by
// case-insensitive substring. The backend rewords these between releases, so
// this table is tied to the provider version in use; update it here and
// nowhere else. Order matters: the first matching row wins.
var authErrorPhrases = []struct {
	kind    apperr.Kind
	phrases []string
}{
	{apperr.KindInvalidCredentials, []string{"invalid login credentials", "invalid credentials"}},
	{apperr.KindUserNotFound, []string{"user not found"}},
	{apperr.KindUserAlreadyExists, []string{"already exists", "already registered"}},
	{apperr.KindWeakPassword, []string{"weak password", "password policy"}},
	{apperr.KindInvalidEmail, []string{"invalid email"}},
}

// backendError is a non-2xx answer from the auth or database backend.
type backendError struct {
	StatusCode int
	Message    string
}

func (e *backendError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
}

// classifyAuthMessage maps a backend message to a kind, falling back to
// KindUnknown carrying the message.
func classifyAuthMessage(message string) *apperr.Error {
	lower := strings.ToLower(message)
	for _, row := range authErrorPhrases {
		for _, phrase := range row.phrases {
			if strings.Contains(lower, phrase) {
				return &apperr.Error{Kind: row.kind, Message: message}
			}
		}
	}
	return &apperr.Error{Kind: apperr.KindUnknown, Message: message}
}

// mapAuthError keeps transport classifications (network, cancelled) and runs
// everything else through the phrase table.
func mapAuthError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrNetwork) || errors.Is(err, apperr.ErrCancelled) {
		return err
	}
	var be *backendError
	if errors.As(err, &be) {
		mapped := classifyAuthMessage(be.Message)
		mapped.Err = be
		return mapped
	}
	mapped := classifyAuthMessage(err.Error())
	mapped.Err = err
	return mapped
}

// mapDatabaseError keeps transport classifications and reports everything
// else as a database error with the raw message.
func mapDatabaseError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrNetwork) || errors.Is(err, apperr.ErrCancelled) ||
		errors.Is(err, apperr.ErrNotAuthenticated) || errors.Is(err, apperr.ErrDecoding) {
		return err
	}
	var be *backendError
	if errors.As(err, &be) {
		return apperr.WithMessage(apperr.KindDatabase, be.Message, be)
	}
	return apperr.WithMessage(apperr.KindDatabase, err.Error(), err)
}
