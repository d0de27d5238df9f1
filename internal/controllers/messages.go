package controllers

import (
	"errors"
	"fmt"

	"github.com/bobby-s-dev/weather-client/internal/apperr"
)

const (
	msgEmptyEmail      = "Please enter your email address"
	msgInvalidEmail    = "Please enter a valid email address"
	msgEmptyPassword   = "Please enter your password"
	msgEmptyNewPass    = "Please enter a password"
	msgShortPassword   = "Password must be at least 6 characters"
	msgShortNewPass    = "Password must be at least 6 characters long"
	msgSignInFailed    = "Sign in failed. Please check your credentials and try again."
	msgSignUpFailed    = "Sign up failed. Please try again or use a different email."
	msgSignOutFailed   = "Failed to sign out. Please try again."
	msgGenericFailure  = "Something went wrong. Please try again."
	msgUnknownFallback = "Unknown error."
)

var errorMessages = map[apperr.Kind]string{
	apperr.KindNetwork:             "Network connection failed.",
	apperr.KindDecoding:            "Failed to decode weather data.",
	apperr.KindInvalidRequest:      msgGenericFailure,
	apperr.KindNoResults:           "No cities found matching your search.",
	apperr.KindNotAuthenticated:    "Authentication required.",
	apperr.KindInvalidCredentials:  "Invalid email or password.",
	apperr.KindUserNotFound:        "User not found.",
	apperr.KindUserAlreadyExists:   "User already exists.",
	apperr.KindWeakPassword:        "Password too weak.",
	apperr.KindInvalidEmail:        "Invalid email.",
	apperr.KindPermissionDenied:    "Location permission denied. Please enable in Settings.",
	apperr.KindLocationUnavailable: "Unable to determine your location.",
	apperr.KindLocationFailed:      "Location service failed.",
	apperr.KindCancelled:           "Request cancelled.",
}

var sessionMessages = map[apperr.Kind]string{
	apperr.KindNotAuthenticated:   "Authentication required. Please sign in.",
	apperr.KindUserNotFound:       "No account found with this email.",
	apperr.KindInvalidCredentials: "Invalid email or password. Please check your credentials.",
	apperr.KindUserAlreadyExists:  "This email is already registered. Please sign in instead.",
	apperr.KindWeakPassword:       "Password is too weak. Use at least 6 characters with letters and numbers.",
	apperr.KindInvalidEmail:       "Please enter a valid email address.",
	apperr.KindNetwork:            "No internet connection. Please check your network and try again.",
	apperr.KindDecoding:           "Something went wrong processing the response. Please try again.",
}

// userMessage renders err for weather, search and settings screens.
func userMessage(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return msgGenericFailure
	}
	switch e.Kind {
	case apperr.KindAPI:
		return fmt.Sprintf("API Error: status code %d", e.StatusCode)
	case apperr.KindDatabase:
		return "Database error: " + e.Message
	case apperr.KindUnknown:
		return rawOr(e.Message, msgUnknownFallback)
	}
	if msg, ok := errorMessages[e.Kind]; ok {
		return msg
	}
	return msgGenericFailure
}

// sessionMessage renders auth failures; kinds outside the auth taxonomy get
// the operation's fallback.
func sessionMessage(err error, fallback string) string {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return fallback
	}
	switch e.Kind {
	case apperr.KindDatabase:
		return "Database error: " + e.Message
	case apperr.KindUnknown:
		return rawOr(e.Message, fallback)
	}
	if msg, ok := sessionMessages[e.Kind]; ok {
		return msg
	}
	return fallback
}

func rawOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
