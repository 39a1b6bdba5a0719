package syncer

import (
	"testing"

	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/testutil"
)

func wiredEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()

	log := logger.New(logger.Config{Level: "error", Format: "json"})
	depsFor := NewDepsBuilder(cfg, testutil.NewMockDocumentStore(), testutil.NewMockReminderService(), log)
	return New(DefaultRegistry(), depsFor, nil, log)
}

func fullyConfigured() *config.Config {
	creds := config.ProviderCredentials{Username: "user", Password: "pass"}
	return &config.Config{
		Captcha: config.CaptchaConfig{APIKey: "captcha-key"},
		Providers: config.ProvidersConfig{
			Fastweb:        config.ProviderCredentials{Username: "user", Password: "pass", ClientCodes: []string{"111"}},
			FastwebEnergia: creds,
			Eni:            creds,
			UmbraAcque:     creds,
		},
	}
}

func TestCheckWithFullConfiguration(t *testing.T) {
	e := wiredEngine(t, fullyConfigured())

	for _, name := range e.Known() {
		if err := e.Check(name); err != nil {
			t.Errorf("Check(%s) = %v, want nil", name, err)
		}
	}
}

func TestCheckWithoutCaptchaKey(t *testing.T) {
	cfg := fullyConfigured()
	cfg.Captcha.APIKey = ""
	e := wiredEngine(t, cfg)

	// CAPTCHA-gated logins cannot work without a solver; that must
	// surface at construction time, before any portal is contacted.
	for _, name := range []string{"eni", "umbra_acque"} {
		err := e.Check(name)
		if !errors.IsCode(err, errors.ErrCodeConfiguration) {
			t.Errorf("Check(%s) error code = %s, want %s", name, errors.CodeOf(err), errors.ErrCodeConfiguration)
		}
	}

	// The token-form logins don't need a solver
	for _, name := range []string{"fastweb", "fastweb_energia"} {
		if err := e.Check(name); err != nil {
			t.Errorf("Check(%s) = %v, want nil", name, err)
		}
	}
}

func TestCheckWithoutCredentials(t *testing.T) {
	cfg := fullyConfigured()
	cfg.Providers.Eni = config.ProviderCredentials{}
	e := wiredEngine(t, cfg)

	if err := e.Check("eni"); !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("Check(eni) error code = %s, want %s", errors.CodeOf(err), errors.ErrCodeConfiguration)
	}
}
