package api

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// NewApp builds the fiber app with the JSON codec and error handler every
// route relies on.
func NewApp(readTimeout, writeTimeout time.Duration, log *zap.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          errorHandler(log),
		DisableStartupMessage: true,
	})
}

func SetupRoutes(app *fiber.App, handler *Handler) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	// Custom logger middleware
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	// API v1 routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", handler.GetHealth)

	// Weather routes
	weather := api.Group("/weather")
	weather.Get("/", handler.GetWeather)
	weather.Post("/refresh", handler.RefreshWeather)
	weather.Post("/location", handler.FetchLocationWeather)
	weather.Post("/coordinates", handler.FetchCoordinateWeather)
	weather.Post("/city", handler.SelectWeatherCity)

	// Search routes
	search := api.Group("/search")
	search.Get("/", handler.GetSearch)
	search.Put("/query", handler.SetSearchQuery)
	search.Post("/favorites/toggle", handler.ToggleFavorite)
	search.Post("/select", handler.SelectSearchCity)

	// Session routes
	session := api.Group("/session")
	session.Get("/", handler.GetSession)
	session.Post("/sign-in", handler.SignIn)
	session.Post("/sign-up", handler.SignUp)
	session.Post("/sign-out", handler.SignOut)

	// Settings routes
	settings := api.Group("/settings")
	settings.Get("/", handler.GetSettings)
	settings.Post("/unit/toggle", handler.ToggleUnit)
	settings.Post("/location-permission", handler.RequestLocationPermission)
	settings.Post("/sign-out", handler.SettingsSignOut)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
			"path":  c.Path(),
		})
	})
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		log.Error("HTTP error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))

		// Default to 500 status code
		code := fiber.StatusInternalServerError

		// Check if it's a Fiber error
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		return c.Status(code).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	}
}
