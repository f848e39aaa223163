package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"finansix/internal/infrastructure/postgres/listener"
	"finansix/internal/interfaces/scheduler"
	"finansix/internal/shared/config"
	"finansix/internal/shared/logger"
	"finansix/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("Telemetry shutdown failed")
			}
		}()
	}

	deps, err := NewDependencies(cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	var lst *listener.InstallmentListener
	if cfg.Listener.Enabled {
		lst = listener.NewInstallmentListener(cfg.Database.ConnectionString(), deps.Exploder, log)
		lst.Start(ctx)
	} else {
		log.Info().Msg("Installment listener is disabled")
	}

	sched, err := startScheduler(cfg, deps, log)
	if err != nil {
		if lst != nil {
			lst.Stop()
		}
		return err
	}

	srv := StartServer(SetupRoutes(deps, cfg, log), cfg, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	GracefulShutdown(srv, sched, lst, 30*time.Second, log)
	return nil
}

func startScheduler(cfg *config.Config, deps *Dependencies, log zerolog.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		log.Info().Msg("Scheduler is disabled")
		return nil, nil
	}

	sched, err := scheduler.New(deps.Scheduler, log)
	if err != nil {
		return nil, err
	}
	sched.Start()
	log.Info().Time("next_run", sched.NextRun(time.Now())).Msg("Reconcile job scheduled")
	return sched, nil
}
