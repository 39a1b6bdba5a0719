package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/captcha"
	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/sink"
)

// Provider is the contract every portal adapter implements. Adapters own
// their session state exclusively; one instance serves one sync pass.
//
// Authenticate is idempotent: a valid existing session must not trigger a
// second login. ListInvoices returns only invoices whose document date
// falls inside the inclusive window, in portal order, all-or-nothing for
// multi-account portals. DownloadInvoice may re-select the owning client
// code's profile first, since session affinity is per account.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context) error
	ListInvoices(ctx context.Context, start, end time.Time) ([]invoice.Invoice, error)
	DownloadInvoice(ctx context.Context, inv invoice.Invoice) ([]byte, error)
	StoreInvoice(ctx context.Context, inv invoice.Invoice, pdf []byte) (bool, error)
	ScheduleReminder(ctx context.Context, inv invoice.Invoice) (bool, error)
}

// Deps carries the collaborators a factory needs to build an adapter for
// one sync pass.
type Deps struct {
	Credentials config.ProviderCredentials
	Sink        *sink.Sink
	Solver      captcha.Solver
	Logger      *logger.Logger

	// BaseURL overrides the portal endpoint, used by tests. Empty means the
	// adapter's production URL.
	BaseURL string
	// AuthBaseURL overrides the external auth endpoint for portals that
	// delegate login (e.g. Gigya).
	AuthBaseURL string
}

// Factory builds a fresh adapter. Credential presence checks happen here,
// before any network activity.
type Factory func(deps Deps) (Provider, error)

// HasCookie reports whether the jar holds a cookie with that name for the
// given URL. Adapters use it as the session-present check.
func HasCookie(jar http.CookieJar, rawURL, name string) bool {
	if jar == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}
