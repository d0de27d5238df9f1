package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/controllers"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

var validate = validator.New()

// StatusReporter describes background jobs for the health endpoint.
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

type Handler struct {
	weather   *controllers.WeatherController
	search    *controllers.SearchController
	session   *controllers.SessionController
	settings  *controllers.SettingsController
	scheduler StatusReporter
	logger    *zap.Logger
}

func NewHandler(
	weather *controllers.WeatherController,
	search *controllers.SearchController,
	session *controllers.SessionController,
	settings *controllers.SettingsController,
	scheduler StatusReporter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		weather:   weather,
		search:    search,
		session:   session,
		settings:  settings,
		scheduler: scheduler,
		logger:    logger,
	}
}

type coordinateRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type cityRequest struct {
	ID          string  `json:"id" validate:"omitempty,uuid"`
	CityName    string  `json:"city_name" validate:"required"`
	CountryCode string  `json:"country_code" validate:"omitempty,len=2"`
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon         float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func (r cityRequest) toCity() models.City {
	city := models.NewCity(r.CityName, r.CountryCode, r.Lat, r.Lon)
	if id, err := uuid.Parse(r.ID); err == nil {
		city.ID = id
	}
	return city
}

type queryRequest struct {
	Query string `json:"query"`
}

// credentialsRequest is passed on unvalidated; the session controller owns
// the validation messages.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
	}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.GetStatus()
	}
	return c.JSON(body)
}

// GetWeather handles GET /api/v1/weather
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	return c.JSON(h.weather.State())
}

// RefreshWeather handles POST /api/v1/weather/refresh
func (h *Handler) RefreshWeather(c *fiber.Ctx) error {
	h.weather.Refresh(c.UserContext())
	return c.JSON(h.weather.State())
}

// FetchLocationWeather handles POST /api/v1/weather/location
func (h *Handler) FetchLocationWeather(c *fiber.Ctx) error {
	h.logger.Info("Fetching weather for current location")
	h.weather.FetchWeatherForCurrentLocation(c.UserContext())
	return c.JSON(h.weather.State())
}

// FetchCoordinateWeather handles POST /api/v1/weather/coordinates
func (h *Handler) FetchCoordinateWeather(c *fiber.Ctx) error {
	var req coordinateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	h.weather.FetchWeather(c.UserContext(), *req.Lat, *req.Lon)
	return c.JSON(h.weather.State())
}

// SelectWeatherCity handles POST /api/v1/weather/city
func (h *Handler) SelectWeatherCity(c *fiber.Ctx) error {
	var req cityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	h.weather.SelectCity(c.UserContext(), req.toCity())
	return c.JSON(h.weather.State())
}

// GetSearch handles GET /api/v1/search
func (h *Handler) GetSearch(c *fiber.Ctx) error {
	return c.JSON(h.search.State())
}

// SetSearchQuery handles PUT /api/v1/search/query. The search itself runs
// after the debounce; poll GET /search for results.
func (h *Handler) SetSearchQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	h.search.SetQuery(req.Query)
	return c.Status(fiber.StatusAccepted).JSON(h.search.State())
}

// ToggleFavorite handles POST /api/v1/search/favorites/toggle
func (h *Handler) ToggleFavorite(c *fiber.Ctx) error {
	var req cityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	h.search.ToggleFavorite(c.UserContext(), req.toCity())
	return c.JSON(h.search.State())
}

// SelectSearchCity handles POST /api/v1/search/select
func (h *Handler) SelectSearchCity(c *fiber.Ctx) error {
	var req cityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	h.search.SelectCity(c.UserContext(), req.toCity())
	return c.JSON(fiber.Map{
		"search":  h.search.State(),
		"weather": h.weather.State(),
	})
}

// GetSession handles GET /api/v1/session
func (h *Handler) GetSession(c *fiber.Ctx) error {
	return c.JSON(h.session.State())
}

// SignIn handles POST /api/v1/session/sign-in
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	state := h.session.SignInWith(c.UserContext(), req.Email, req.Password)
	h.afterAuthChange(c)
	return sessionResponse(c, state)
}

// SignUp handles POST /api/v1/session/sign-up
func (h *Handler) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	state := h.session.SignUpWith(c.UserContext(), req.Email, req.Password)
	h.afterAuthChange(c)
	return sessionResponse(c, state)
}

// SignOut handles POST /api/v1/session/sign-out
func (h *Handler) SignOut(c *fiber.Ctx) error {
	h.session.SignOut(c.UserContext())
	h.afterAuthChange(c)
	return c.JSON(h.session.State())
}

// GetSettings handles GET /api/v1/settings
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(h.settings.State())
}

// ToggleUnit handles POST /api/v1/settings/unit/toggle
func (h *Handler) ToggleUnit(c *fiber.Ctx) error {
	h.settings.ToggleUnit()
	return c.JSON(h.settings.State())
}

// RequestLocationPermission handles POST /api/v1/settings/location-permission
func (h *Handler) RequestLocationPermission(c *fiber.Ctx) error {
	h.settings.RequestLocationPermission()
	return c.JSON(h.settings.State())
}

// SettingsSignOut handles POST /api/v1/settings/sign-out
func (h *Handler) SettingsSignOut(c *fiber.Ctx) error {
	h.settings.SignOut(c.UserContext())
	h.session.CheckAuthStatus()
	h.afterAuthChange(c)
	return c.JSON(h.settings.State())
}

// afterAuthChange reloads the favorites of whoever is now signed in.
func (h *Handler) afterAuthChange(c *fiber.Ctx) {
	h.search.FetchFavorites(c.UserContext())
}

// sessionResponse answers 401 while an error keeps the user signed out.
func sessionResponse(c *fiber.Ctx, state controllers.SessionState) error {
	if state.ErrorMessage != "" && !state.IsAuthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(state)
	}
	return c.JSON(state)
}

var startTime = time.Now()
