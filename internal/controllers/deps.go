// Package controllers owns the observable state a UI renders: search,
// weather, session and settings. Every controller is safe for concurrent use,
// publishes immutable snapshots through State and signals changes on the
// channels returned by Changes.
package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/bobby-s-dev/weather-client/internal/location"
	"github.com/bobby-s-dev/weather-client/internal/models"
)

type CitySearcher interface {
	SearchCities(ctx context.Context, query string) ([]models.City, error)
}

type WeatherFetcher interface {
	FetchCurrent(ctx context.Context, lat, lon float64, unit models.TemperatureUnit) (models.Weather, error)
	Fetch5DayForecast(ctx context.Context, lat, lon float64, unit models.TemperatureUnit) ([]models.Weather, error)
}

type FavoritesStore interface {
	ListFavorites(ctx context.Context) ([]models.City, error)
	AddFavorite(ctx context.Context, city models.City) error
	RemoveFavorite(ctx context.Context, cityID uuid.UUID) error
}

type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (models.User, error)
	SignIn(ctx context.Context, email, password string) (models.User, error)
	SignOut(ctx context.Context) error
	GetCurrentUser() (models.User, bool)
}

type LocationProvider interface {
	GetCurrentLocation(ctx context.Context) (models.Coordinate, error)
}

type PermissionSource interface {
	Status() location.Permission
	RequestPermission()
}

type UnitPreference interface {
	Unit() models.TemperatureUnit
	SetUnit(unit models.TemperatureUnit) error
}

type RecentsStore interface {
	Recents() []models.City
	SaveRecents(cities []models.City) error
}

// CitySelector receives a city the user picked from search.
type CitySelector interface {
	SelectCity(ctx context.Context, city models.City)
}
