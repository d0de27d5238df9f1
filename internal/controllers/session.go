package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// loose_email only asks for an @ and a dot; the backend does the real check.
	err := v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.Contains(s, "@") && strings.Contains(s, ".")
	})
	if err != nil {
		panic(fmt.Sprintf("controllers: register loose_email: %v", err))
	}
	return v
}

type credentials struct {
	Email    string `validate:"required,loose_email"`
	Password string `validate:"required,min=6"`
}

type credentialMessages struct {
	emptyPassword string
	shortPassword string
}

var (
	signInMessages = credentialMessages{emptyPassword: msgEmptyPassword, shortPassword: msgShortPassword}
	signUpMessages = credentialMessages{emptyPassword: msgEmptyNewPass, shortPassword: msgShortNewPass}
)

type SessionState struct {
	Email           string `json:"email"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsLoading       bool   `json:"is_loading"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// SessionController holds the sign-in form and the authenticated flag.
type SessionController struct {
	notifier
	auth   Authenticator
	logger *zap.Logger

	mu       sync.Mutex
	state    SessionState
	password string
}

func NewSessionController(auth Authenticator, logger *zap.Logger) *SessionController {
	c := &SessionController{auth: auth, logger: logger}
	c.CheckAuthStatus()
	return c
}

func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CheckAuthStatus syncs the flag with the auth client's cached session.
func (c *SessionController) CheckAuthStatus() {
	_, ok := c.auth.GetCurrentUser()
	c.mu.Lock()
	c.state.IsAuthenticated = ok
	c.mu.Unlock()
	c.notify()
}

func (c *SessionController) SetEmail(email string) {
	c.mu.Lock()
	c.state.Email = email
	c.mu.Unlock()
	c.notify()
}

func (c *SessionController) SetPassword(password string) {
	c.mu.Lock()
	c.password = password
	c.mu.Unlock()
}

func (c *SessionController) SignIn(ctx context.Context) {
	c.authenticate(ctx, "sign in", signInMessages, msgSignInFailed, c.auth.SignIn, nil)
}

func (c *SessionController) SignUp(ctx context.Context) {
	c.authenticate(ctx, "sign up", signUpMessages, msgSignUpFailed, c.auth.SignUp, nil)
}

// SignInWith fills the form and signs in as one step, so concurrent callers
// never mix each other's fields. It returns the state left by this attempt.
func (c *SessionController) SignInWith(ctx context.Context, email, password string) SessionState {
	return c.authenticate(ctx, "sign in", signInMessages, msgSignInFailed, c.auth.SignIn,
		&credentials{Email: email, Password: password})
}

// SignUpWith is SignInWith for registration.
func (c *SessionController) SignUpWith(ctx context.Context, email, password string) SessionState {
	return c.authenticate(ctx, "sign up", signUpMessages, msgSignUpFailed, c.auth.SignUp,
		&credentials{Email: email, Password: password})
}

// SignOut always drops the authenticated flag and the form. A backend failure
// is still reported.
func (c *SessionController) SignOut(ctx context.Context) {
	c.mu.Lock()
	c.state.IsLoading = true
	c.state.ErrorMessage = ""
	c.mu.Unlock()
	c.notify()

	err := c.auth.SignOut(ctx)

	c.mu.Lock()
	c.state.IsAuthenticated = false
	c.clearFieldsLocked()
	if err != nil {
		c.state.ErrorMessage = sessionMessage(err, msgSignOutFailed)
		c.logger.Warn("Sign out failed", zap.Error(err))
	} else {
		c.logger.Info("Signed out")
	}
	c.state.IsLoading = false
	c.mu.Unlock()
	c.notify()
}

func (c *SessionController) authenticate(
	ctx context.Context,
	op string,
	messages credentialMessages,
	fallback string,
	call func(context.Context, string, string) (models.User, error),
	form *credentials,
) SessionState {
	c.mu.Lock()
	if form != nil {
		c.state.Email = form.Email
		c.password = form.Password
	}
	creds := credentials{Email: strings.TrimSpace(c.state.Email), Password: c.password}
	if msg := validationMessage(creds, messages); msg != "" {
		c.state.ErrorMessage = msg
		result := c.state
		c.mu.Unlock()
		c.notify()
		return result
	}
	c.state.IsLoading = true
	c.state.ErrorMessage = ""
	c.mu.Unlock()
	c.notify()

	_, err := call(ctx, creds.Email, creds.Password)

	c.mu.Lock()
	if err != nil {
		c.state.ErrorMessage = sessionMessage(err, fallback)
		c.logger.Warn("Authentication failed", zap.String("operation", op), zap.Error(err))
	} else {
		c.state.IsAuthenticated = true
		c.clearFieldsLocked()
		c.logger.Info("Authenticated", zap.String("operation", op))
	}
	c.state.IsLoading = false
	result := c.state
	c.mu.Unlock()
	c.notify()
	return result
}

func (c *SessionController) clearFieldsLocked() {
	c.state.Email = ""
	c.state.ErrorMessage = ""
	c.password = ""
}

// validationMessage returns the message for the first failing rule, or "".
func validationMessage(creds credentials, messages credentialMessages) string {
	err := validate.Struct(creds)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return msgGenericFailure
	}
	first := verrs[0]
	switch first.Field() {
	case "Email":
		if first.Tag() == "required" {
			return msgEmptyEmail
		}
		return msgInvalidEmail
	default:
		if first.Tag() == "required" {
			return messages.emptyPassword
		}
		return messages.shortPassword
	}
}
