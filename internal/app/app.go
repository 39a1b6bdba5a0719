package app

import (
	"context"

	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/googleauth"
	"github.com/bollettalabs/bolletta-sync/internal/history"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/sink"
	"github.com/bollettalabs/bolletta-sync/internal/syncer"
)

// App wires the sync engine and its stores. The HTTP server and the
// CLI's in-process mode share this assembly.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	History *history.Store
	Engine  *syncer.Engine
}

// New builds the full engine stack: history store, Google-backed sinks,
// captcha solver, provider registry. The Google token must already be
// cached; acquiring it interactively is the authorize command's job.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, errors.Internal("failed to open history store", err)
	}

	auth := googleauth.NewManager(cfg.Google.CredentialsPath, cfg.Google.TokenPath)
	tokenSource, err := auth.TokenSource(ctx)
	if err != nil {
		_ = hist.Close()
		return nil, errors.ConfigurationError("google",
			"Google authorization unavailable, run the authorize command first")
	}

	store, err := sink.NewDriveStore(ctx, tokenSource)
	if err != nil {
		_ = hist.Close()
		return nil, errors.Internal("failed to initialize document store", err)
	}
	reminders, err := sink.NewTasksReminders(ctx, tokenSource)
	if err != nil {
		_ = hist.Close()
		return nil, errors.Internal("failed to initialize reminder service", err)
	}

	registry := syncer.DefaultRegistry()
	depsFor := syncer.NewDepsBuilder(cfg, store, reminders, log)

	return &App{
		Config:  cfg,
		Log:     log,
		History: hist,
		Engine:  syncer.New(registry, depsFor, hist, log),
	}, nil
}

func (a *App) Close() error {
	return a.History.Close()
}
