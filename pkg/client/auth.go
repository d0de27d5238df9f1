package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/apperr"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

const (
	favoritesTable = "favorite_cities"
	sessionKey     = "auth.session"
)

// KeyValueStore persists the auth session between runs.
type KeyValueStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Session mirrors the backend session. The client keeps at most one.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// AuthClient talks to the auth backend and its favorite_cities table over
// REST. Apart from configuration it only caches the current session.
type AuthClient struct {
	*BaseClient
	baseURL string
	anonKey string
	store   KeyValueStore
	logger  *zap.Logger

	mu      sync.RWMutex
	session *Session
}

type AuthOption func(*AuthClient)

// WithSessionStore persists sessions in store and restores one at construction.
func WithSessionStore(store KeyValueStore) AuthOption {
	return func(c *AuthClient) {
		c.store = store
	}
}

type authUser struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at"`
}

// authResponse covers both shapes the backend answers sign-up with: a
// session with a nested user, or a bare user when confirmation is pending.
type authResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *authUser `json:"user"`
	authUser
}

type backendErrorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

type favoriteRow struct {
	UserID      uuid.UUID `json:"user_id"`
	CityName    string    `json:"city_name"`
	CountryCode string    `json:"country_code"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
}

func NewAuthClient(baseURL, anonKey string, config ClientConfig, logger *zap.Logger, opts ...AuthOption) *AuthClient {
	return newAuthClient(NewBaseClient("backend", config, logger), baseURL, anonKey, logger, opts...)
}

func newAuthClient(base *BaseClient, baseURL, anonKey string, logger *zap.Logger, opts ...AuthOption) *AuthClient {
	c := &AuthClient{
		BaseClient: base,
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.restoreSession()
	return c
}

func (c *AuthClient) SignUp(ctx context.Context, email, password string) (models.User, error) {
	user, err := c.authenticate(ctx, "/auth/v1/signup", email, password)
	if err != nil {
		c.logger.Warn("Sign up failed", zap.Error(err))
		return models.User{}, err
	}
	return user, nil
}

func (c *AuthClient) SignIn(ctx context.Context, email, password string) (models.User, error) {
	user, err := c.authenticate(ctx, "/auth/v1/token?grant_type=password", email, password)
	if err != nil {
		c.logger.Warn("Sign in failed", zap.Error(err))
		return models.User{}, err
	}
	return user, nil
}

// SignOut invalidates the backend session. The local session is dropped even
// when the backend call fails.
func (c *AuthClient) SignOut(ctx context.Context) error {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return nil
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil, session.AccessToken)
	if err == nil {
		_, err = c.send(ctx, req)
	}
	c.setSession(nil)

	if err != nil {
		c.logger.Warn("Sign out failed", zap.Error(err))
		return mapAuthError(err)
	}
	return nil
}

// GetCurrentUser reads the cached session without any I/O.
func (c *AuthClient) GetCurrentUser() (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return models.User{}, false
	}
	return c.session.User, true
}

// ListFavorites returns the signed-in user's favorites, newest first.
func (c *AuthClient) ListFavorites(ctx context.Context) ([]models.City, error) {
	session, err := c.requireSession()
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("select", "*")
	values.Set("user_id", "eq."+session.User.ID.String())
	values.Set("order", "created_at.desc")

	var cities []models.City
	if err := c.queryTable(ctx, session, values, &cities); err != nil {
		c.logger.Warn("Fetch favorites failed", zap.Error(err))
		return nil, err
	}
	return cities, nil
}

func (c *AuthClient) AddFavorite(ctx context.Context, city models.City) error {
	session, err := c.requireSession()
	if err != nil {
		return err
	}

	body, err := json.Marshal(favoriteRow{
		UserID:      session.User.ID,
		CityName:    city.CityName,
		CountryCode: city.CountryCode,
		Lat:         city.Lat,
		Lon:         city.Lon,
	})
	if err != nil {
		return apperr.New(apperr.KindInvalidRequest, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rest/v1/"+favoritesTable, body, session.AccessToken)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")

	if _, err := c.send(ctx, req); err != nil {
		c.logger.Warn("Add favorite failed", zap.String("city", city.CityName), zap.Error(err))
		return mapDatabaseError(err)
	}
	return nil
}

func (c *AuthClient) RemoveFavorite(ctx context.Context, cityID uuid.UUID) error {
	session, err := c.requireSession()
	if err != nil {
		return err
	}

	values := url.Values{}
	values.Set("id", "eq."+cityID.String())
	req, err := c.newRequest(ctx, http.MethodDelete, "/rest/v1/"+favoritesTable+"?"+values.Encode(), nil, session.AccessToken)
	if err != nil {
		return err
	}

	if _, err := c.send(ctx, req); err != nil {
		c.logger.Warn("Remove favorite failed", zap.String("city_id", cityID.String()), zap.Error(err))
		return mapDatabaseError(err)
	}
	return nil
}

// IsFavorite is a lenient read: any failure, including no session, is false.
func (c *AuthClient) IsFavorite(ctx context.Context, cityName string) bool {
	session, err := c.requireSession()
	if err != nil {
		return false
	}

	values := url.Values{}
	values.Set("select", "id")
	values.Set("user_id", "eq."+session.User.ID.String())
	values.Set("city_name", "eq."+cityName)

	var rows []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := c.queryTable(ctx, session, values, &rows); err != nil {
		c.logger.Debug("Favorite lookup failed", zap.String("city", cityName), zap.Error(err))
		return false
	}
	return len(rows) > 0
}

func (c *AuthClient) authenticate(ctx context.Context, path, email, password string) (models.User, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return models.User{}, apperr.New(apperr.KindInvalidRequest, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return models.User{}, err
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return models.User{}, mapAuthError(err)
	}

	var payload authResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return models.User{}, apperr.New(apperr.KindDecoding, err)
	}

	u := payload.User
	if u == nil {
		u = &payload.authUser
	}
	if u.ID == uuid.Nil {
		return models.User{}, apperr.WithMessage(apperr.KindDecoding, "auth response has no user", nil)
	}

	user := models.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
	if user.Email == "" {
		user.Email = email
	}

	if payload.AccessToken != "" {
		c.setSession(&Session{
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
			User:         user,
		})
	}
	return user, nil
}

func (c *AuthClient) queryTable(ctx context.Context, session *Session, values url.Values, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+favoritesTable+"?"+values.Encode(), nil, session.AccessToken)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return mapDatabaseError(err)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apperr.New(apperr.KindDecoding, err)
	}
	return nil
}

func (c *AuthClient) requireSession() (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	return c.session, nil
}

func (c *AuthClient) newRequest(ctx context.Context, method, path string, body []byte, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidRequest, err)
	}

	token := accessToken
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send returns a *backendError for any non-2xx status.
func (c *AuthClient) send(ctx context.Context, req *http.Request) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &backendError{StatusCode: resp.StatusCode, Message: backendMessage(resp)}
	}
	return resp, nil
}

func backendMessage(resp *Response) string {
	var body backendErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		for _, m := range []string{body.Msg, body.ErrorDescription, body.Message, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

func (c *AuthClient) setSession(session *Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if session == nil {
		if err := c.store.Delete(sessionKey); err != nil {
			c.logger.Warn("Failed to clear stored session", zap.Error(err))
		}
		return
	}
	data, err := json.Marshal(session)
	if err != nil {
		c.logger.Warn("Failed to encode session", zap.Error(err))
		return
	}
	if err := c.store.Set(sessionKey, data); err != nil {
		c.logger.Warn("Failed to store session", zap.Error(err))
	}
}

func (c *AuthClient) restoreSession() {
	if c.store == nil {
		return
	}
	data, ok, err := c.store.Get(sessionKey)
	if err != nil {
		c.logger.Warn("Failed to read stored session", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil || session.AccessToken == "" {
		c.logger.Warn("Discarding unreadable stored session", zap.Error(err))
		return
	}
	c.session = &session
	c.logger.Info("Restored session", zap.String("user_id", session.User.ID.String()))
}
