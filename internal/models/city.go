package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// City is transient when it comes from a geocoding search (UserID nil) and a
// favorite once the backend has assigned it an owner.
type City struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CityName    string     `json:"city_name"`
	CountryCode string     `json:"country_code,omitempty"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func NewCity(name, countryCode string, lat, lon float64) City {
	return City{
		ID:          uuid.New(),
		CityName:    name,
		CountryCode: countryCode,
		Lat:         lat,
		Lon:         lon,
	}
}

func (c City) DisplayName() string {
	if c.CountryCode != "" {
		return c.CityName + ", " + c.CountryCode
	}
	return c.CityName
}

func (c City) IsFavorite() bool {
	return c.UserID != nil
}

func (c City) Coordinate() Coordinate {
	return Coordinate{Lat: c.Lat, Lon: c.Lon}
}

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is finite and within range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
