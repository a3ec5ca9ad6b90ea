package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/crewchat-hq/crewchat/internal/api"
	"github.com/crewchat-hq/crewchat/internal/auth"
	"github.com/crewchat-hq/crewchat/internal/chat"
	"github.com/crewchat-hq/crewchat/internal/config"
	"github.com/crewchat-hq/crewchat/internal/member"
	"github.com/crewchat-hq/crewchat/internal/presence"
	"github.com/crewchat-hq/crewchat/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Pick the message store and the directory backing. Production runs
	// against the shared platform PostgreSQL; development falls back to a
	// local SQLite file that also carries the membership tables.
	var (
		msgStore  store.MessageStore
		directory member.Directory
	)
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		logger.Info().Msg("connected to PostgreSQL")

		msgStore = pgStore
		directory = member.NewPostgresDirectory(pgStore.Pool())
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")

		msgStore = sqliteStore
		directory = member.NewSQLiteDirectory(sqliteStore.DB())
	}

	// Initialize Redis (rate limiting); optional in development
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Messaging core: registry and feeds are process-wide singletons by
	// construction, not by global state.
	registry := presence.NewRegistry()
	feeds := chat.NewFeeds()
	chatRouter := chat.NewRouter(msgStore, directory, registry, feeds, logger)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	// Create router
	router := api.NewRouter(api.Deps{
		Logger:    logger,
		Store:     msgStore,
		Redis:     redisStore,
		Directory: directory,
		Router:    chatRouter,
		Verifier:  verifier,
	})

	// Create server. No WriteTimeout: it would sever long-lived WebSocket
	// connections; the ws layer enforces its own per-write deadlines.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting crewchat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
