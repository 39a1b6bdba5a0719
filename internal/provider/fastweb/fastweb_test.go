package fastweb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
)

// fakePortal mimics the MyFastweb session flow: securityToken form login,
// account chooser, per-profile invoice listing and PDF downloads.
type fakePortal struct {
	mu sync.Mutex

	password string
	invoices map[string]string // client code -> invoiceList JSON

	loggedIn   bool
	activeCode string
	expired    bool

	logins int

	profileDelay time.Duration
}

func (p *fakePortal) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(loginPagePath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "sess-1", Path: "/"})
		fmt.Fprint(w, `<html><form><input type="hidden" name="securityToken" value="tok-login"></form></html>`)
	})

	mux.HandleFunc(loginAjaxPath, func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if r.FormValue("securityToken") != "tok-login" {
			fmt.Fprint(w, `{"errorCode":2,"errorMessage":"bad token"}`)
			return
		}
		if r.FormValue("password") != p.password {
			fmt.Fprint(w, `{"errorCode":1,"errorMessage":"credenziali errate"}`)
			return
		}
		p.loggedIn = true
		p.expired = false
		p.activeCode = ""
		p.logins++
		fmt.Fprint(w, `{"errorCode":0}`)
	})

	mux.HandleFunc(homePath, func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if !p.loggedIn || p.expired {
			http.Redirect(w, r, loginPagePath, http.StatusFound)
			return
		}
		if p.activeCode == "" {
			http.Redirect(w, r, chooserPath, http.StatusFound)
			return
		}
		fmt.Fprint(w, `<html>home</html>`)
	})

	mux.HandleFunc(chooserPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>choose an account</html>`)
	})

	mux.HandleFunc(profilePath, func(w http.ResponseWriter, r *http.Request) {
		if p.profileDelay > 0 {
			select {
			case <-time.After(p.profileDelay):
			case <-r.Context().Done():
				return
			}
		}
		p.mu.Lock()
		code := r.FormValue("account")
		if _, ok := p.invoices[code]; !ok {
			p.mu.Unlock()
			http.Redirect(w, r, chooserPath, http.StatusFound)
			return
		}
		p.activeCode = code
		p.mu.Unlock()
		http.Redirect(w, r, homePath, http.StatusFound)
	})

	mux.HandleFunc(invoicesPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><input name="securityToken" value="tok-invoices"></html>`)
	})

	mux.HandleFunc(invoicesAjax, func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if r.FormValue("securityToken") != "tok-invoices" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		fmt.Fprintf(w, `{"invoiceList":%s}`, p.invoices[p.activeCode])
	})

	mux.HandleFunc("/myfastweb/abbonamento/le-mie-fatture/download/", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.activeCode == "" {
			http.Error(w, "no profile", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "pdf for %s via %s", r.URL.Path, p.activeCode)
	})

	return mux
}

func newTestAdapter(t *testing.T, portal *fakePortal, codes []string) (*Adapter, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(portal.handler())
	t.Cleanup(srv.Close)

	p, err := New(provider.Deps{
		Credentials: config.ProviderCredentials{
			Username:    "user@example.com",
			Password:    "hunter2",
			ClientCodes: codes,
		},
		Logger:  logger.New(logger.Config{Level: "error", Format: "json"}),
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p.(*Adapter), srv
}

func TestNewRequiresCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds config.ProviderCredentials
	}{
		{name: "missing everything", creds: config.ProviderCredentials{}},
		{name: "missing password", creds: config.ProviderCredentials{Username: "u", ClientCodes: []string{"1"}}},
		{name: "missing client codes", creds: config.ProviderCredentials{Username: "u", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(provider.Deps{
				Credentials: tt.creds,
				Logger:      logger.New(logger.Config{Level: "error", Format: "json"}),
			})
			if err == nil {
				t.Fatal("New accepted incomplete credentials")
			}
			if !errors.IsCode(err, errors.ErrCodeConfiguration) {
				t.Errorf("error code = %s, want %s", errors.CodeOf(err), errors.ErrCodeConfiguration)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	portal := &fakePortal{password: "hunter2", invoices: map[string]string{"111": "[]"}}
	a, _ := newTestAdapter(t, portal, []string{"111"})

	ctx := context.Background()
	if err := a.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if portal.logins != 1 {
		t.Errorf("logins = %d, want 1", portal.logins)
	}

	// Second call finds the live session cookie and skips the login
	if err := a.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}
	if portal.logins != 1 {
		t.Errorf("logins after second Authenticate = %d, want 1", portal.logins)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	portal := &fakePortal{password: "other", invoices: map[string]string{"111": "[]"}}
	a, _ := newTestAdapter(t, portal, []string{"111"})

	err := a.Authenticate(context.Background())
	if err == nil {
		t.Fatal("Authenticate accepted wrong credentials")
	}
	if !errors.IsCode(err, errors.ErrCodeAuthentication) {
		t.Errorf("error code = %s, want %s", errors.CodeOf(err), errors.ErrCodeAuthentication)
	}
}

func TestListInvoicesAcrossClientCodes(t *testing.T) {
	portal := &fakePortal{
		password: "hunter2",
		invoices: map[string]string{
			"111": `[{"NumDoc":"F-1","DocDateYMD":"2025-03-03","DocExpireDateYMD":"2025-03-18","DocAmount":45.30},
			        {"NumDoc":"F-0","DocDateYMD":"2025-01-03","DocExpireDateYMD":"2025-01-18","DocAmount":40.00}]`,
			"222": `[{"NumDoc":"F-2","DocDateYMD":"2025-03-07","DocExpireDateYMD":"2025-03-22","DocAmount":61.20}]`,
		},
	}
	a, _ := newTestAdapter(t, portal, []string{"111", "222"})

	ctx := context.Background()
	if err := a.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}

	start, end := invoice.Date(2025, time.March, 1), invoice.Date(2025, time.March, 31)
	got, err := a.ListInvoices(ctx, start, end)
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d invoices, want 2 (out-of-window F-0 filtered)", len(got))
	}
	if got[0].ID != "F-1" || got[0].ClientCode != "111" {
		t.Errorf("first invoice = %+v", got[0])
	}
	if got[1].ID != "F-2" || got[1].ClientCode != "222" {
		t.Errorf("second invoice = %+v", got[1])
	}
	if got[0].Amount.String() != "45.3" {
		t.Errorf("F-1 amount = %s, want 45.3", got[0].Amount.String())
	}
	if got[1].Amount.String() != "61.2" {
		t.Errorf("F-2 amount = %s, want 61.2", got[1].Amount.String())
	}
}

func TestDownloadInvoiceSelectsProfile(t *testing.T) {
	portal := &fakePortal{
		password: "hunter2",
		invoices: map[string]string{"111": "[]", "222": "[]"},
	}
	a, _ := newTestAdapter(t, portal, []string{"111", "222"})

	ctx := context.Background()
	if err := a.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}

	inv := invoice.Invoice{ID: "F-9", ClientCode: "222"}
	pdf, err := a.DownloadInvoice(ctx, inv)
	if err != nil {
		t.Fatalf("DownloadInvoice: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("empty download")
	}
	if portal.activeCode != "222" {
		t.Errorf("active profile = %s, want 222", portal.activeCode)
	}
}

func TestProfileSelectionHonorsContext(t *testing.T) {
	portal := &fakePortal{
		password:     "hunter2",
		invoices:     map[string]string{"111": "[]", "222": "[]"},
		profileDelay: 5 * time.Second,
	}
	a, _ := newTestAdapter(t, portal, []string{"111", "222"})

	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := a.DownloadInvoice(ctx, invoice.Invoice{ID: "F-9", ClientCode: "222"})
	if err == nil {
		t.Fatal("DownloadInvoice ignored the cancelled context")
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Errorf("profile selection blocked for %v after the deadline", elapsed)
	}
}

func TestSessionExpiryRetriesLoginOnce(t *testing.T) {
	portal := &fakePortal{password: "hunter2", invoices: map[string]string{"111": "[]"}}
	a, _ := newTestAdapter(t, portal, []string{"111"})

	ctx := context.Background()
	if err := a.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}

	portal.mu.Lock()
	portal.expired = true
	portal.mu.Unlock()

	start, end := invoice.Date(2025, time.March, 1), invoice.Date(2025, time.March, 31)
	if _, err := a.ListInvoices(ctx, start, end); err != nil {
		t.Fatalf("ListInvoices after expiry: %v", err)
	}
	if portal.logins != 2 {
		t.Errorf("logins = %d, want 2 (one re-login)", portal.logins)
	}
}
