package controllers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-client/internal/models"
)

type WeatherState struct {
	CurrentWeather *models.Weather  `json:"current_weather,omitempty"`
	Forecast       []models.Weather `json:"forecast"`
	SelectedCity   *models.City     `json:"selected_city,omitempty"`
	Unit           string           `json:"unit"`
	IsLoading      bool             `json:"is_loading"`
	ErrorMessage   string           `json:"error_message,omitempty"`
}

// WeatherController owns the current conditions and forecast shown for either
// the selected city or the device location.
type WeatherController struct {
	notifier
	weather  WeatherFetcher
	location LocationProvider
	units    UnitPreference
	logger   *zap.Logger

	mu    sync.Mutex
	gen   uint64
	state WeatherState
}

func NewWeatherController(weather WeatherFetcher, location LocationProvider, units UnitPreference, logger *zap.Logger) *WeatherController {
	return &WeatherController{
		weather:  weather,
		location: location,
		units:    units,
		logger:   logger,
	}
}

func (c *WeatherController) State() WeatherState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.CurrentWeather != nil {
		w := *s.CurrentWeather
		s.CurrentWeather = &w
	}
	if s.SelectedCity != nil {
		city := *s.SelectedCity
		s.SelectedCity = &city
	}
	if s.Forecast != nil {
		s.Forecast = append([]models.Weather(nil), s.Forecast...)
	}
	s.Unit = c.units.Unit().Symbol()
	return s
}

// FetchWeather loads current conditions and the forecast concurrently. State
// is only replaced when both succeed; otherwise the error is recorded and the
// previous weather stays. A fetch overtaken by a newer one applies nothing.
func (c *WeatherController) FetchWeather(ctx context.Context, lat, lon float64) {
	c.fetch(ctx, c.setLoading(), lat, lon)
}

func (c *WeatherController) fetch(ctx context.Context, gen uint64, lat, lon float64) {
	unit := c.units.Unit()
	started := time.Now()

	var (
		wg          sync.WaitGroup
		current     models.Weather
		forecast    []models.Weather
		currentErr  error
		forecastErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = c.weather.FetchCurrent(ctx, lat, lon, unit)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = c.weather.Fetch5DayForecast(ctx, lat, lon, unit)
	}()
	wg.Wait()

	err := currentErr
	if err == nil {
		err = forecastErr
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("Dropping superseded weather fetch",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon))
		return
	}
	if err != nil {
		c.state.ErrorMessage = userMessage(err)
		c.logger.Warn("Weather fetch failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
	} else {
		c.state.CurrentWeather = &current
		c.state.Forecast = forecast
		c.logger.Info("Weather fetch completed",
			zap.Int("forecast_days", len(forecast)),
			zap.String("unit", string(unit)),
			zap.Duration("duration", time.Since(started)))
	}
	c.state.IsLoading = false
	c.mu.Unlock()
	c.notify()
}

// FetchWeatherForCurrentLocation resolves the device location and fetches its
// weather. A location failure is recorded and no fetch is made.
func (c *WeatherController) FetchWeatherForCurrentLocation(ctx context.Context) {
	gen := c.setLoading()

	coord, err := c.location.GetCurrentLocation(ctx)
	if err != nil {
		c.logger.Warn("Location lookup failed", zap.Error(err))
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.state.ErrorMessage = userMessage(err)
		c.state.IsLoading = false
		c.mu.Unlock()
		c.notify()
		return
	}

	c.fetch(ctx, gen, coord.Lat, coord.Lon)
}

// SelectCity makes city the subject of Refresh and fetches its weather.
func (c *WeatherController) SelectCity(ctx context.Context, city models.City) {
	c.mu.Lock()
	c.state.SelectedCity = &city
	gen := c.beginLocked()
	c.mu.Unlock()
	c.notify()
	c.logger.Info("City selected", zap.String("city", city.DisplayName()))

	c.fetch(ctx, gen, city.Lat, city.Lon)
}

// ClearSelection goes back to following the device location.
func (c *WeatherController) ClearSelection() {
	c.mu.Lock()
	c.state.SelectedCity = nil
	c.mu.Unlock()
	c.notify()
}

// Refresh re-fetches for the selected city, or the current location when no
// city is selected.
func (c *WeatherController) Refresh(ctx context.Context) {
	c.mu.Lock()
	city := c.state.SelectedCity
	if city == nil {
		c.mu.Unlock()
		c.FetchWeatherForCurrentLocation(ctx)
		return
	}
	lat, lon := city.Lat, city.Lon
	gen := c.beginLocked()
	c.mu.Unlock()
	c.notify()

	c.fetch(ctx, gen, lat, lon)
}

// setLoading starts a new fetch generation and returns it.
func (c *WeatherController) setLoading() uint64 {
	c.mu.Lock()
	gen := c.beginLocked()
	c.mu.Unlock()
	c.notify()
	return gen
}

func (c *WeatherController) beginLocked() uint64 {
	c.gen++
	c.state.IsLoading = true
	c.state.ErrorMessage = ""
	return c.gen
}
