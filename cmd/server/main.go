// Command server runs the prechat capture-and-handoff API.
//
// Startup order: environment → config → logging → tracing → storage →
// token codec → router. A misconfigured signing secret is fatal here rather
// than surfacing later as per-request failures.
//
// @title       Prechat Form API
// @version     1.0
// @description Capture-and-handoff service: collects visitor contact details,
// @description issues chat session credentials, and hands visitors off to a
// @description downstream chat workspace.
// @BasePath    /api/v1
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-prechat-backend/internal/config"
	httpapi "github.com/tbourn/go-prechat-backend/internal/http"
	"github.com/tbourn/go-prechat-backend/internal/observability"
	"github.com/tbourn/go-prechat-backend/internal/repo"
	"github.com/tbourn/go-prechat-backend/internal/sysutil"
	"github.com/tbourn/go-prechat-backend/internal/token"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Str("path", cfg.DBPath).Msg("database ready")

	// Fail fast on a bad secret or algorithm instead of erroring per request.
	codec, err := token.NewCodec(cfg.Token.Secret, cfg.Token.Algorithm, cfg.Token.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure token signing")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, codec, cfg)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}

	log.Info().Msg("server stopped")
}
