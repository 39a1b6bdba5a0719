package syncer

import (
	"fmt"

	"github.com/bollettalabs/bolletta-sync/internal/captcha"
	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
	"github.com/bollettalabs/bolletta-sync/internal/provider/eni"
	"github.com/bollettalabs/bolletta-sync/internal/provider/fastweb"
	"github.com/bollettalabs/bolletta-sync/internal/provider/fastwebenergia"
	"github.com/bollettalabs/bolletta-sync/internal/provider/umbraacque"
	"github.com/bollettalabs/bolletta-sync/internal/sink"
)

// DefaultRegistry registers every built-in portal adapter
func DefaultRegistry() *provider.Registry {
	r := provider.NewRegistry()
	r.Register(fastweb.Name, fastweb.New)
	r.Register(fastwebenergia.Name, fastwebenergia.New)
	r.Register(eni.Name, eni.New)
	r.Register(umbraacque.Name, umbraacque.New)
	return r
}

// NewDepsBuilder wires configuration, the document/reminder backends and
// the CAPTCHA solver into per-provider dependencies. Each provider gets
// its own Sink so folder ids are cached per namespace. Without a solver
// API key the solver stays nil, so CAPTCHA-gated adapters fail their
// construction-time configuration check instead of failing mid-login.
func NewDepsBuilder(cfg *config.Config, store sink.DocumentStore, reminders sink.ReminderService, log *logger.Logger) DepsBuilder {
	opts := sink.Options{
		RootFolder:   cfg.Google.RootFolder,
		ReminderList: cfg.Google.ReminderList,
	}

	var solver captcha.Solver
	if cfg.Captcha.APIKey != "" {
		solver = captcha.NewClient(cfg.Captcha.APIKey, cfg.Captcha.BaseURL, cfg.Captcha.Timeout)
	}

	return func(name string) (provider.Deps, error) {
		var creds config.ProviderCredentials
		switch name {
		case fastweb.Name:
			creds = cfg.Providers.Fastweb
		case fastwebenergia.Name:
			creds = cfg.Providers.FastwebEnergia
		case eni.Name:
			creds = cfg.Providers.Eni
		case umbraacque.Name:
			creds = cfg.Providers.UmbraAcque
		default:
			return provider.Deps{}, fmt.Errorf("no credentials mapped for provider %q", name)
		}

		return provider.Deps{
			Credentials: creds,
			Sink:        sink.New(store, reminders, opts, name),
			Solver:      solver,
			Logger:      log,
		}, nil
	}
}
