package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Cyclepulse/internal/cache"
	"Cyclepulse/internal/config"
	"Cyclepulse/internal/database"
	"Cyclepulse/internal/geminiservice"
	"Cyclepulse/internal/recommendation"
	"Cyclepulse/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The server has 5 seconds to finish the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("recommendation API stopped")
	}
	log.Info().Msg("Graceful shutdown complete.")
}

// run owns every resource it opens, so deferred cleanup happens before main
// decides the exit status.
func run(cfg config.Config) error {
	// Cycle history store. The engine itself works without it.
	var db database.Service
	if cfg.Database.Host != "" {
		dbService, err := database.NewService(cfg.Database)
		if err != nil {
			return fmt.Errorf("could not initialize database: %w", err)
		}
		defer dbService.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := dbService.Migrate(migrateCtx); err != nil {
			log.Warn().Err(err).Msg("Could not apply cycle history schema; stored-history route may fail")
		}
		cancel()
		db = dbService
	} else {
		log.Warn().Msg("BLUEPRINT_DB_HOST is not set; stored-history recommendations are disabled")
	}

	resultCache, err := cache.New(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("could not initialize recommendation cache: %w", err)
	}

	gemini := geminiservice.NewClient(log.Logger, geminiservice.Options{
		APIKey:         cfg.GeminiAPIKey,
		APIURL:         cfg.GeminiAPIURL,
		RequestTimeout: cfg.GeminiTimeout,
		MaxAttempts:    cfg.GeminiMaxAttempts,
		InitialBackoff: cfg.GeminiInitialBackoff,
	})

	engine := recommendation.NewEngine(log.Logger, resultCache, gemini)
	apiServer, err := server.NewServer(cfg, db, engine)
	if err != nil {
		return fmt.Errorf("could not configure http server: %w", err)
	}

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done)

	log.Info().Str("addr", apiServer.Addr).Str("env", cfg.AppEnv).Msg("Starting recommendation API")

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	return nil
}
