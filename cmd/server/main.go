// Command server runs the allocation engine as an HTTP service: a single
// POST /api/analysis/run endpoint that wires a request into
// pkg/analysis.RunAnalysis and returns the resulting report measures.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/globalfund/allocengine/internal/config"
	"github.com/globalfund/allocengine/internal/httpapi"
)

func main() {
	cfg, err := config.Load()
	fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if err != nil {
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "allocengine").Logger()

	logger.Info().Msg("starting allocation engine server")

	srv := httpapi.New(httpapi.Config{Port: strconv.Itoa(cfg.ServerPort), Logger: logger})

	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down allocation engine server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server stopped")
}
