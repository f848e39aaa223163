package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"finansix/internal/infrastructure/postgres/listener"
	"finansix/internal/interfaces/scheduler"
	"finansix/internal/shared/config"
)

// StartServer creates and starts the HTTP server in the background.
func StartServer(handler http.Handler, cfg *config.Config, log zerolog.Logger) *http.Server {
	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	return srv
}

// GracefulShutdown stops the background paths first, then the HTTP server.
func GracefulShutdown(srv *http.Server, sched *scheduler.Scheduler, lst *listener.InstallmentListener, timeout time.Duration, log zerolog.Logger) {
	log.Info().Msg("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if sched != nil {
		sched.Shutdown(timeout)
	}

	if lst != nil {
		lst.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	log.Info().Msg("Server stopped")
}
