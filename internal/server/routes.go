package server

import (
	"net/http"

	"Cyclepulse/internal/utility"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = s.ipExtractor
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"https://*", "http://*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:       300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)

	// Recommendation engine routes
	e.POST("/recommendations", s.GetRecommendationsHandler)
	e.POST("/users/:user_id/recommendations", s.GetStoredHistoryRecommendationsHandler)
	e.DELETE("/recommendations/cache", s.ClearRecommendationCacheHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	dbHealth := map[string]string{"status": "not configured"}
	if s.db != nil {
		dbHealth = s.db.Health()
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"database": dbHealth,
		"cache":    s.engine.CacheStats(),
		"system":   utility.SystemStats(),
	})
}

// LoggerMiddleware tags every request with an id and stores a child logger
// carrying it on the context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().
			Str("request_id", requestID).
			Str("client_ip", c.RealIP()).
			Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
