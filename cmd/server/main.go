package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bobby-s-dev/weather-client/internal/api"
	"github.com/bobby-s-dev/weather-client/internal/config"
	"github.com/bobby-s-dev/weather-client/internal/controllers"
	"github.com/bobby-s-dev/weather-client/internal/location"
	"github.com/bobby-s-dev/weather-client/internal/models"
	"github.com/bobby-s-dev/weather-client/internal/scheduler"
	"github.com/bobby-s-dev/weather-client/internal/storage"
	"github.com/bobby-s-dev/weather-client/pkg/client"
)

func main() {
	// Initialize logger
	logger := newLogger(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	logger.Info("Starting Weather Client Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	store, err := storage.NewSQLite(cfg.Storage.Path, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	prefs := storage.NewPreferences(store, logger)

	// Clients
	httpCfg := client.ClientConfig{
		Timeout:        cfg.HTTP.Timeout,
		Threshold:      cfg.HTTP.BreakerThreshold,
		BreakerTimeout: cfg.HTTP.BreakerTimeout,
	}
	weatherClient := client.NewOpenWeatherClient(cfg.WeatherAPI.OpenWeatherAPIKey, httpCfg, logger,
		client.WithBaseURLs(cfg.WeatherAPI.BaseURL, cfg.WeatherAPI.GeoURL))
	authClient := client.NewAuthClient(cfg.Backend.URL, cfg.Backend.AnonKey, httpCfg, logger,
		client.WithSessionStore(store))

	// Location
	var coord *models.Coordinate
	if lat, lon, ok := cfg.Coordinate(); ok {
		coord = &models.Coordinate{Lat: lat, Lon: lon}
	}
	platform := location.NewFixedPlatform(
		location.ParsePermission(cfg.Location.Permission),
		location.ParsePermission(cfg.Location.Grant),
		coord,
		logger,
	)
	provider := location.NewProvider(platform, logger)

	ctx, cancelListen := context.WithCancel(context.Background())
	defer cancelListen()
	go provider.Listen(ctx, platform.Events())

	// Controllers
	weatherCtrl := controllers.NewWeatherController(weatherClient, provider, prefs, logger)
	searchCtrl := controllers.NewSearchController(weatherClient, authClient, prefs, logger,
		controllers.WithDebounce(cfg.Search.Debounce),
		controllers.WithRecentCapacity(cfg.Search.RecentCapacity),
		controllers.WithCitySelector(weatherCtrl),
	)
	sessionCtrl := controllers.NewSessionController(authClient, logger)
	settingsCtrl := controllers.NewSettingsController(prefs, authClient, provider, logger)

	// Initialize scheduler
	refreshScheduler := scheduler.NewScheduler(weatherCtrl, cfg.Scheduler.RefreshInterval, logger)
	if err := refreshScheduler.Start(); err != nil {
		logger.Warn("Auto-refresh disabled", zap.Error(err))
	}

	// Create Fiber app
	app := api.NewApp(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, logger)
	handler := api.NewHandler(weatherCtrl, searchCtrl, sessionCtrl, settingsCtrl, refreshScheduler, logger)
	api.SetupRoutes(app, handler)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("Starting server", zap.String("address", addr))

		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	refreshScheduler.Stop()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	searchCtrl.Close()
	cancelListen()
	if err := store.Close(); err != nil {
		logger.Error("Failed to close storage", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
