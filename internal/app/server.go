package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bollettalabs/bolletta-sync/internal/api/handlers"
	"github.com/bollettalabs/bolletta-sync/internal/api/router"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/validator"
	"github.com/bollettalabs/bolletta-sync/internal/worker"
)

// Serve runs the HTTP API (and the cron scheduler when configured)
// until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Worker.Schedule != "" {
		scheduler, err := worker.NewScheduler(a.Engine, a.Config.Worker.Schedule, a.Log)
		if err != nil {
			return fmt.Errorf("invalid sync schedule: %w", err)
		}
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				a.Log.ErrorWithErr(err, "Sync scheduler stopped with error")
			}
		}()
	}

	val := validator.New()
	handler := router.New(a.Config, a.Log, &router.Handlers{
		Health: handlers.NewHealthHandler(a.History, a.Log),
		Sync:   handlers.NewSyncHandler(a.Engine, a.Log, val),
		Runs:   handlers.NewRunsHandler(a.History, a.Log),
	})

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Infof("API server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
