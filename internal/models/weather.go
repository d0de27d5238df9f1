package models

import (
	"time"
)

// TemperatureUnit doubles as the provider's `units` query value.
type TemperatureUnit string

const (
	Metric   TemperatureUnit = "metric"
	Imperial TemperatureUnit = "imperial"
)

// ParseTemperatureUnit falls back to Metric for anything it does not know.
func ParseTemperatureUnit(s string) TemperatureUnit {
	if TemperatureUnit(s) == Imperial {
		return Imperial
	}
	return Metric
}

func (u TemperatureUnit) Symbol() string {
	if u == Imperial {
		return "°F"
	}
	return "°C"
}

// Toggled returns the other unit.
func (u TemperatureUnit) Toggled() TemperatureUnit {
	if u == Imperial {
		return Metric
	}
	return Imperial
}

type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// DefaultIconName is the symbol for unknown or missing icon codes.
const DefaultIconName = "cloud.fill"

var iconNames = map[string]string{
	"01d": "sun.max.fill",
	"01n": "moon.stars.fill",
	"02d": "cloud.sun.fill",
	"02n": "cloud.moon.fill",
	"03d": "cloud.fill",
	"03n": "cloud.fill",
	"04d": "smoke.fill",
	"04n": "smoke.fill",
	"09d": "cloud.rain.fill",
	"09n": "cloud.rain.fill",
	"10d": "cloud.sun.rain.fill",
	"10n": "cloud.moon.rain.fill",
	"11d": "cloud.bolt.fill",
	"11n": "cloud.bolt.fill",
	"13d": "snow",
	"13n": "snow",
	"50d": "cloud.fog.fill",
	"50n": "cloud.fog.fill",
}

// IconName maps the provider icon code to a display symbol key.
func (c Condition) IconName() string {
	if name, ok := iconNames[c.Icon]; ok {
		return name
	}
	return DefaultIconName
}

// UnknownCondition stands in when the provider reports no condition entries.
var UnknownCondition = Condition{
	ID:          0,
	Main:        "Unknown",
	Description: "unknown",
	Icon:        "",
}

// Weather is a point-in-time snapshot identified by its timestamp.
type Weather struct {
	Dt        int64     `json:"dt"`
	Temp      float64   `json:"temp"`
	FeelsLike float64   `json:"feels_like"`
	TempMin   float64   `json:"temp_min"`
	TempMax   float64   `json:"temp_max"`
	Pressure  int       `json:"pressure"`
	Humidity  int       `json:"humidity"`
	Condition Condition `json:"condition"`
	WindSpeed float64   `json:"wind_speed"`
	Clouds    int       `json:"clouds"`
	Pop       *float64  `json:"pop,omitempty"`
}

func (w Weather) Time() time.Time {
	return time.Unix(w.Dt, 0)
}

// DayName is the abbreviated weekday of the snapshot in loc.
func (w Weather) DayName(loc *time.Location) string {
	return w.Time().In(loc).Format("Mon")
}
