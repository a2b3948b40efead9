// Command server runs the character chat HTTP API.
//
// Configuration comes from the environment (see internal/config); a .env file
// in the working directory is loaded first when present.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/character-chat-backend/internal/config"
	"github.com/tbourn/character-chat-backend/internal/generation"
	httpapi "github.com/tbourn/character-chat-backend/internal/http"
	"github.com/tbourn/character-chat-backend/internal/observability"
	"github.com/tbourn/character-chat-backend/internal/sysutil"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, cfg.Version)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("could not read .env")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, cfg.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, store, generation.Echo{}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("closing store")
	}
	if err := shutdownTracing(drainCtx); err != nil {
		log.Error().Err(err).Msg("flushing traces")
	}

	log.Info().Msg("server exited")
}
