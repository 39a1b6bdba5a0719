package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bollettalabs/bolletta-sync/internal/app"
	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
