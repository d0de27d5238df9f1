package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/controllers"
	"github.com/bobby-s-dev/weather-client/internal/location"
	"github.com/bobby-s-dev/weather-client/internal/models"
	"github.com/bobby-s-dev/weather-client/internal/storage"
	"github.com/bobby-s-dev/weather-client/pkg/client"
)

const (
	currentBody  = `{"weather":[{"id":801,"main":"Clouds","description":"few clouds","icon":"02d"}],"main":{"temp":21.3,"feels_like":21,"temp_min":19,"temp_max":23,"pressure":1015,"humidity":40},"wind":{"speed":3.2},"clouds":{"all":20},"dt":1710000000,"name":"Berlin"}`
	forecastBody = `{"list":[{"dt":1710000000,"main":{"temp":20},"weather":[]},{"dt":1710090000,"main":{"temp":18},"weather":[]}]}`
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/weather":
			fmt.Fprint(w, currentBody)
		case "/forecast":
			fmt.Fprint(w, forecastBody)
		case "/direct":
			fmt.Fprint(w, `[{"name":"Berlin","lat":52.52,"lon":13.4,"country":"DE"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(provider.Close)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"msg":"Invalid login credentials"}`)
	}))
	t.Cleanup(backend.Close)

	httpCfg := client.ClientConfig{Timeout: 2 * time.Second, Threshold: 100, BreakerTimeout: time.Second}
	weatherClient := client.NewOpenWeatherClient("key", httpCfg, logger,
		client.WithBaseURLs(provider.URL, provider.URL), client.WithLocation(time.UTC))
	store := storage.NewMemory()
	authClient := client.NewAuthClient(backend.URL, "anon", httpCfg, logger, client.WithSessionStore(store))
	prefs := storage.NewPreferences(store, logger)

	berlin := models.Coordinate{Lat: 52.52, Lon: 13.4}
	platform := location.NewFixedPlatform(location.PermissionAuthorized, location.PermissionAuthorized, &berlin, logger)
	provider2 := location.NewProvider(platform, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go provider2.Listen(ctx, platform.Events())

	weatherCtrl := controllers.NewWeatherController(weatherClient, provider2, prefs, logger)
	searchCtrl := controllers.NewSearchController(weatherClient, authClient, prefs, logger,
		controllers.WithDebounce(10*time.Millisecond), controllers.WithCitySelector(weatherCtrl))
	t.Cleanup(searchCtrl.Close)
	searchCtrl.Wait()
	sessionCtrl := controllers.NewSessionController(authClient, logger)
	settingsCtrl := controllers.NewSettingsController(prefs, authClient, provider2, logger)

	app := NewApp(5*time.Second, 5*time.Second, logger)
	SetupRoutes(app, NewHandler(weatherCtrl, searchCtrl, sessionCtrl, settingsCtrl, nil, logger))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	status, body := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)
	status, body := doJSON(t, app, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Endpoint not found", body["error"])
}

func TestWeatherCoordinates(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/weather/coordinates", map[string]float64{"lat": 95, "lon": 0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/weather/coordinates", map[string]float64{"lon": 0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/weather/coordinates", map[string]float64{"lat": 52.52, "lon": 13.4})
	require.Equal(t, http.StatusOK, status)
	current, ok := body["current_weather"].(map[string]interface{})
	require.True(t, ok, "body %v", body)
	assert.Equal(t, 21.3, current["temp"])
	assert.Len(t, body["forecast"], 2)
}

func TestWeatherForCurrentLocation(t *testing.T) {
	app := newTestApp(t)
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/weather/location", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body["current_weather"])
	assert.Nil(t, body["error_message"])
}

func TestSelectCityThenRefresh(t *testing.T) {
	app := newTestApp(t)
	city := map[string]interface{}{"city_name": "Berlin", "country_code": "DE", "lat": 52.52, "lon": 13.4}

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/weather/city", city)
	require.Equal(t, http.StatusOK, status)
	selected := body["selected_city"].(map[string]interface{})
	assert.Equal(t, "Berlin", selected["city_name"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/weather/refresh", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSearchQueryFlow(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodPut, "/api/v1/search/query", map[string]string{"query": "Berlin"})
	assert.Equal(t, http.StatusAccepted, status)

	assert.Eventually(t, func() bool {
		_, body := doJSON(t, app, http.MethodGet, "/api/v1/search", nil)
		results, _ := body["results"].([]interface{})
		return len(results) == 1
	}, 2*time.Second, 20*time.Millisecond)

	status, body := doJSON(t, app, http.MethodPut, "/api/v1/search/query", map[string]string{"query": ""})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Nil(t, body["results"])
}

func TestToggleFavoriteSignedOut(t *testing.T) {
	app := newTestApp(t)
	city := map[string]interface{}{"city_name": "Berlin", "country_code": "DE", "lat": 52.52, "lon": 13.4}

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/search/favorites/toggle", city)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Authentication required.", body["error_message"])
}

func TestSignInValidationAndBackendError(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/session/sign-in",
		map[string]string{"email": "ada@example.com", "password": "12345"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Password must be at least 6 characters", body["error_message"])

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/session/sign-in",
		map[string]string{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password. Please check your credentials.", body["error_message"])
	assert.Equal(t, false, body["is_authenticated"])
}

func TestSettings(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "metric", body["unit"])
	assert.Equal(t, "Not logged in", body["user_email"])
	assert.Equal(t, "Enabled", body["location_status"])

	_, body = doJSON(t, app, http.MethodPost, "/api/v1/settings/unit/toggle", nil)
	assert.Equal(t, "imperial", body["unit"])
	assert.Equal(t, "°F", body["unit_symbol"])
}
