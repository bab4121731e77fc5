/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and exposes the
recommendation engine over HTTP.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"Cyclepulse/internal/config"
	"Cyclepulse/internal/database"
	"Cyclepulse/internal/recommendation"
	"Cyclepulse/internal/utility"
	"github.com/labstack/echo/v4"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db loads stored cycle history. It may be nil when no database is configured.
	db database.Service

	// engine answers every recommendation request.
	engine *recommendation.Engine

	// refreshLimiter throttles force_refresh requests per client IP.
	refreshLimiter *utility.IPRateLimiter

	// ipExtractor resolves the client IP, trusting forwarding headers only
	// from configured proxies.
	ipExtractor echo.IPExtractor
}

// New builds the Server value; NewServer wraps it in an *http.Server.
func New(cfg config.Config, db database.Service, engine *recommendation.Engine) (*Server, error) {
	extractor, err := utility.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	return &Server{
		port:           cfg.Port,
		db:             db,
		engine:         engine,
		refreshLimiter: utility.NewIPRateLimiter(cfg.ForceRefreshPerMinute, cfg.RefreshTrackedClients),
		ipExtractor:    extractor,
	}, nil
}

// NewServer returns a configured *http.Server with production-ready network timeouts.
func NewServer(cfg config.Config, db database.Service, engine *recommendation.Engine) (*http.Server, error) {
	app, err := New(cfg, db, engine)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", app.port),
		Handler:     app.RegisterRoutes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
		// Covers a full retry cycle against Gemini: three 10s attempts plus 3s of backoff.
		WriteTimeout: 45 * time.Second,
	}, nil
}
