package controllers

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/location"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

const notLoggedIn = "Not logged in"

type SettingsState struct {
	Unit               models.TemperatureUnit `json:"unit"`
	UnitSymbol         string                 `json:"unit_symbol"`
	UserEmail          string                 `json:"user_email"`
	LocationPermission string                 `json:"location_permission"`
	LocationStatus     string                 `json:"location_status"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
}

type SettingsController struct {
	notifier
	units       UnitPreference
	auth        Authenticator
	permissions PermissionSource
	logger      *zap.Logger

	mu           sync.Mutex
	errorMessage string
}

func NewSettingsController(units UnitPreference, auth Authenticator, permissions PermissionSource, logger *zap.Logger) *SettingsController {
	return &SettingsController{
		units:       units,
		auth:        auth,
		permissions: permissions,
		logger:      logger,
	}
}

func (c *SettingsController) State() SettingsState {
	unit := c.units.Unit()
	email := notLoggedIn
	if user, ok := c.auth.GetCurrentUser(); ok {
		email = user.Email
	}
	permission := c.permissions.Status()

	c.mu.Lock()
	defer c.mu.Unlock()
	return SettingsState{
		Unit:               unit,
		UnitSymbol:         unit.Symbol(),
		UserEmail:          email,
		LocationPermission: permission.String(),
		LocationStatus:     locationStatusText(permission),
		ErrorMessage:       c.errorMessage,
	}
}

// ToggleUnit switches between metric and imperial and persists the choice.
func (c *SettingsController) ToggleUnit() {
	next := c.units.Unit().Toggled()
	err := c.units.SetUnit(next)

	c.mu.Lock()
	if err != nil {
		c.errorMessage = msgGenericFailure
		c.logger.Warn("Failed to save unit", zap.Error(err))
	} else {
		c.errorMessage = ""
		c.logger.Info("Temperature unit changed", zap.String("unit", string(next)))
	}
	c.mu.Unlock()
	c.notify()
}

func (c *SettingsController) RequestLocationPermission() {
	c.permissions.RequestPermission()
	c.notify()
}

func (c *SettingsController) SignOut(ctx context.Context) {
	err := c.auth.SignOut(ctx)

	c.mu.Lock()
	if err != nil {
		c.errorMessage = userMessage(err)
		c.logger.Warn("Sign out failed", zap.Error(err))
	} else {
		c.errorMessage = ""
	}
	c.mu.Unlock()
	c.notify()
}

func locationStatusText(p location.Permission) string {
	switch p {
	case location.PermissionAuthorized:
		return "Enabled"
	case location.PermissionDenied, location.PermissionRestricted:
		return "Disabled"
	default:
		return "Not Set"
	}
}
