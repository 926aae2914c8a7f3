package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hoiekim/budget-sub000/internal/scheduler"
	"github.com/hoiekim/budget-sub000/internal/shared/config"
	"github.com/hoiekim/budget-sub000/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize telemetry (if enabled)
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Printf("Telemetry shutdown error: %v", err)
			}
		}()
	}

	deps, err := NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	if !cfg.Scheduler.Enabled {
		log.Println("Scheduler is disabled, nothing to do")
		return nil
	}

	sched := scheduler.New(scheduler.Config{
		Interval:     cfg.Scheduler.Interval,
		WorkerCount:  cfg.Scheduler.WorkerCount,
		QueueSize:    cfg.Scheduler.QueueSize,
		RunOnStartup: cfg.Scheduler.RunOnStartup,
		JobProvider:  scheduler.NewItemJobProvider(deps.ItemRepo, deps.PlaidSync, deps.SimpleFinSync),
	})
	sched.Start()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	sched.Shutdown(shutdownTimeout)
	log.Println("Shutdown complete")
	return nil
}
