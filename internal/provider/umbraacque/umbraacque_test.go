package umbraacque

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/captcha"
	"github.com/bollettalabs/bolletta-sync/internal/config"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/logger"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
	"github.com/bollettalabs/bolletta-sync/internal/testutil"
)

func gigyaHandler(t *testing.T, password string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(gigyaLoginPath, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("captchaToken") == "" {
			fmt.Fprint(w, `{"errorCode":400021,"errorMessage":"missing captcha"}`)
			return
		}
		if r.FormValue("password") != password {
			fmt.Fprint(w, `{"errorCode":403042,"errorMessage":"invalid loginID or password"}`)
			return
		}
		fmt.Fprint(w, `{"errorCode":0,"sessionInfo":{"login_token":"lt-abc"}}`)
	})
	return mux
}

func portalHandler(t *testing.T, invoices string) http.Handler {
	requireToken := func(w http.ResponseWriter, r *http.Request) bool {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value != "lt-abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc(utenzePath, func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		fmt.Fprint(w, `{"data":[{"contractPk":"CT-77"},{"contractPk":"CT-88"}]}`)
	})
	mux.HandleFunc(invoicesPath, func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		if r.URL.Query().Get("contractPk") != "CT-77" {
			http.Error(w, "unknown contract", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"body":{"invoices":%s}}`, invoices)
	})
	mux.HandleFunc(downloadPath, func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		if r.URL.Query().Get("invoiceNumber") != "W-5" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "acqua pdf bytes")
	})
	return mux
}

func newTestAdapter(t *testing.T, portal, gigya http.Handler, solver captcha.Solver) *Adapter {
	t.Helper()

	portalSrv := httptest.NewServer(portal)
	t.Cleanup(portalSrv.Close)
	gigyaSrv := httptest.NewServer(gigya)
	t.Cleanup(gigyaSrv.Close)

	p, err := New(provider.Deps{
		Credentials: config.ProviderCredentials{
			Username: "acqua@example.com",
			Password: "hunter2",
		},
		Solver:      solver,
		Logger:      logger.New(logger.Config{Level: "error", Format: "json"}),
		BaseURL:     portalSrv.URL,
		AuthBaseURL: gigyaSrv.URL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p.(*Adapter)
}

func TestAuthenticate(t *testing.T) {
	solver := &testutil.MockSolver{Token: "v3-tok"}
	a := newTestAdapter(t, portalHandler(t, "[]"), gigyaHandler(t, "hunter2"), solver)

	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if solver.LastVer != captcha.V3 {
		t.Errorf("captcha version = %s, want %s", solver.LastVer, captcha.V3)
	}

	// The login token must now ride along as a portal cookie
	if err := a.ensureContract(context.Background()); err != nil {
		t.Fatalf("portal rejected the login token: %v", err)
	}
	if a.contractPk != "CT-77" {
		t.Errorf("contractPk = %s, want the first supply contract CT-77", a.contractPk)
	}

	// Re-auth is a no-op while the token cookie is live
	if err := a.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if solver.Calls != 1 {
		t.Errorf("solver called %d times, want 1", solver.Calls)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	a := newTestAdapter(t, portalHandler(t, "[]"), gigyaHandler(t, "other"), &testutil.MockSolver{})

	err := a.Authenticate(context.Background())
	if !errors.IsCode(err, errors.ErrCodeAuthentication) {
		t.Errorf("error code = %s, want %s", errors.CodeOf(err), errors.ErrCodeAuthentication)
	}
}

func TestListInvoices(t *testing.T) {
	invoices := `[{"invoiceNumber":"W-5","issueDate":"2025-03-06","expiryDate":"2025-03-26","total":33.40,"contractId":"CT-77"},
	             {"invoiceNumber":"W-4","issueDate":"2024-12-06","expiryDate":"2024-12-26","total":31.00,"contractId":"CT-77"}]`
	a := newTestAdapter(t, portalHandler(t, invoices), gigyaHandler(t, "hunter2"), &testutil.MockSolver{})

	ctx := context.Background()
	if err := a.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := a.ListInvoices(ctx, invoice.Date(2025, time.March, 1), invoice.Date(2025, time.March, 31))
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d invoices, want 1", len(got))
	}
	inv := got[0]
	if inv.ID != "W-5" || inv.ClientCode != "CT-77" {
		t.Errorf("invoice = %+v", inv)
	}
	if inv.Amount.String() != "33.4" {
		t.Errorf("Amount = %s, want 33.4", inv.Amount.String())
	}
}

func TestDownloadInvoice(t *testing.T) {
	a := newTestAdapter(t, portalHandler(t, "[]"), gigyaHandler(t, "hunter2"), &testutil.MockSolver{})

	ctx := context.Background()
	if err := a.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}

	pdf, err := a.DownloadInvoice(ctx, invoice.Invoice{ID: "W-5"})
	if err != nil {
		t.Fatalf("DownloadInvoice: %v", err)
	}
	if string(pdf) != "acqua pdf bytes" {
		t.Errorf("pdf = %q", pdf)
	}

	_, err = a.DownloadInvoice(ctx, invoice.Invoice{ID: "W-404"})
	if !errors.IsCode(err, errors.ErrCodeDownload) {
		t.Errorf("error code = %s, want %s", errors.CodeOf(err), errors.ErrCodeDownload)
	}
}
