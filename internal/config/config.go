package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server struct {
		Port            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		LogLevel        string
	}

	WeatherAPI struct {
		OpenWeatherAPIKey string
		BaseURL           string
		GeoURL            string
	}

	Backend struct {
		URL     string
		AnonKey string
	}

	HTTP struct {
		Timeout          time.Duration
		BreakerThreshold int
		BreakerTimeout   time.Duration
	}

	Search struct {
		Debounce       time.Duration
		RecentCapacity int
	}

	Storage struct {
		Path string
	}

	Location struct {
		Permission string
		Grant      string
		Lat        string
		Lon        string
	}

	Scheduler struct {
		RefreshInterval time.Duration
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("FIBER_PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("FIBER_READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("FIBER_WRITE_TIMEOUT", "30s"))
	cfg.Server.ShutdownTimeout = parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	// Weather API configuration
	cfg.WeatherAPI.OpenWeatherAPIKey = getEnv("OPENWEATHER_API_KEY", "")
	cfg.WeatherAPI.BaseURL = getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5")
	cfg.WeatherAPI.GeoURL = getEnv("OPENWEATHER_GEO_URL", "https://api.openweathermap.org/geo/1.0")

	// Auth and favorites backend
	cfg.Backend.URL = getEnv("SUPABASE_URL", "")
	cfg.Backend.AnonKey = getEnv("SUPABASE_ANON_KEY", "")

	// HTTP client and circuit breaker
	cfg.HTTP.Timeout = parseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	cfg.HTTP.BreakerThreshold = parseInt(getEnv("CIRCUIT_BREAKER_THRESHOLD", "3"))
	cfg.HTTP.BreakerTimeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "30s"))

	// Search
	cfg.Search.Debounce = parseDuration(getEnv("SEARCH_DEBOUNCE", "300ms"))
	cfg.Search.RecentCapacity = parseInt(getEnv("RECENT_SEARCHES", "5"))

	// Local storage
	cfg.Storage.Path = getEnv("STORAGE_PATH", "weather-client.db")

	// Location platform
	cfg.Location.Permission = getEnv("LOCATION_PERMISSION", "not_determined")
	cfg.Location.Grant = getEnv("LOCATION_GRANT", "authorized")
	cfg.Location.Lat = getEnv("LOCATION_LAT", "")
	cfg.Location.Lon = getEnv("LOCATION_LON", "")

	// Scheduler configuration
	cfg.Scheduler.RefreshInterval = parseDuration(getEnv("REFRESH_INTERVAL", "15m"))

	if cfg.WeatherAPI.OpenWeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY is required")
	}
	if cfg.Backend.URL == "" {
		return nil, errors.New("SUPABASE_URL is required")
	}

	return cfg, nil
}

// Coordinate returns the configured fix, or false when none is set or it does
// not parse.
func (c *Config) Coordinate() (lat, lon float64, ok bool) {
	if c.Location.Lat == "" || c.Location.Lon == "" {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(c.Location.Lat, 64)
	lon, errLon := strconv.ParseFloat(c.Location.Lon, 64)
	if errLat != nil || errLon != nil {
		zap.L().Warn("Ignoring unparsable location",
			zap.String("lat", c.Location.Lat),
			zap.String("lon", c.Location.Lon))
		return 0, 0, false
	}
	return lat, lon, true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}
