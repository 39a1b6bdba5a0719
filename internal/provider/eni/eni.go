package eni

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/bollettalabs/bolletta-sync/internal/captcha"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
)

// Name is the provider identifier
const Name = "eni"

const (
	defaultBaseURL = "https://eniplenitude.com"

	loginPagePath = "/my-eni/"
	emailStepPath = "/my-eni/api/auth/email"
	loginStepPath = "/my-eni/api/auth/login"
	initPath      = "/serviceDAp/api/c360/init"
	invoicesFmt   = "/serviceDAp/c360/api/conti/%s/bollette"
	downloadFmt   = "/serviceDAp/c360/api/conti/%s/download-doc-pdf"

	// reCAPTCHA v2 site key of the login page
	siteKey = "6Le0PL0UAAAAAO1hC6YdbLxTM4dXpaWUZ-M02uCz"

	sessionCookie = "JSESSIONID"

	portalDateLayout = "02/01/2006"
)

// Adapter syncs invoices from the Eni Plenitude portal. Login is a
// two-step email/password flow behind reCAPTCHA v2; invoices come from the
// serviceDAp JSON API keyed by the default account code.
type Adapter struct {
	provider.Base

	username string
	password string
	baseURL  string
	solver   captcha.Solver
	client   *http.Client

	// resolved by the c360 init call, reused for downloads
	accountCode string
	clientCode  string
}

// New builds an eni adapter for one sync pass
func New(deps provider.Deps) (provider.Provider, error) {
	creds := deps.Credentials
	if creds.Username == "" || creds.Password == "" {
		return nil, errors.ConfigurationError(Name, "ENI_USERNAME and ENI_PASSWORD must be set")
	}
	if deps.Solver == nil {
		return nil, errors.ConfigurationError(Name, "CAPTCHA_API_KEY must be set for the eni login")
	}

	baseURL := defaultBaseURL
	if deps.BaseURL != "" {
		baseURL = deps.BaseURL
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		Base:     provider.NewBase(Name, deps.Sink, deps.Logger),
		username: creds.Username,
		password: creds.Password,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		solver:   deps.Solver,
		client: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Authenticate runs the two-step CAPTCHA-gated login. A live session
// cookie short-circuits the flow.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if provider.HasCookie(a.client.Jar, a.baseURL, sessionCookie) {
		a.Log().Debug("session cookie present, skipping login")
		return nil
	}

	// Warm up the portal session cookies
	if _, err := a.getDiscard(ctx, a.baseURL+loginPagePath); err != nil {
		return errors.AuthenticationError(Name, err)
	}

	token, err := a.solver.Solve(ctx, siteKey, a.baseURL+loginPagePath, captcha.V2)
	if err != nil {
		return errors.AuthenticationError(Name, fmt.Errorf("captcha solve failed: %w", err))
	}

	if err := a.postLoginStep(ctx, emailStepPath, map[string]string{
		"email":        a.username,
		"captchaToken": token,
	}); err != nil {
		return errors.AuthenticationError(Name, err)
	}

	if err := a.postLoginStep(ctx, loginStepPath, map[string]string{
		"email":        a.username,
		"password":     a.password,
		"captchaToken": token,
	}); err != nil {
		return errors.AuthenticationError(Name, err)
	}

	a.Log().Info("logged in")
	return nil
}

func (a *Adapter) postLoginStep(ctx context.Context, path string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login step %s rejected with HTTP %d", path, resp.StatusCode)
	}
	return nil
}

// ensureAccount resolves the default account and client codes through the
// c360 init endpoint, once per pass.
func (a *Adapter) ensureAccount(ctx context.Context) error {
	if a.accountCode != "" {
		return nil
	}

	var result struct {
		CodiceContoDefault string `json:"codiceContoDefault"`
		CodiceCliente      string `json:"codiceCliente"`
	}
	if err := a.getJSON(ctx, a.baseURL+initPath+"?channel=PORTAL", &result); err != nil {
		return err
	}
	if result.CodiceContoDefault == "" {
		return fmt.Errorf("c360 init returned no default account code")
	}

	a.accountCode = result.CodiceContoDefault
	a.clientCode = result.CodiceCliente
	return nil
}

type bolletta struct {
	NumeroBolletta string      `json:"numeroBolletta"`
	Emissione      string      `json:"emissione"`
	Scadenza       string      `json:"scadenza"`
	Importo        json.Number `json:"importo"`
}

// ListInvoices lists the account's bills and filters them to the
// inclusive window. Portal dates are dd/mm/yyyy.
func (a *Adapter) ListInvoices(ctx context.Context, start, end time.Time) ([]invoice.Invoice, error) {
	if err := a.ensureAccount(ctx); err != nil {
		return nil, errors.ProviderError(Name, err)
	}

	var result struct {
		Bollette []bolletta `json:"bollette"`
	}
	listURL := a.baseURL + fmt.Sprintf(invoicesFmt, a.accountCode) + "?channel=PORTAL"
	if err := a.getJSON(ctx, listURL, &result); err != nil {
		return nil, errors.ProviderError(Name, err)
	}

	var out []invoice.Invoice
	for _, b := range result.Bollette {
		docDate, err := time.Parse(portalDateLayout, b.Emissione)
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: bad issue date %q: %w", b.NumeroBolletta, b.Emissione, err))
		}
		dueDate, err := time.Parse(portalDateLayout, b.Scadenza)
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: bad due date %q: %w", b.NumeroBolletta, b.Scadenza, err))
		}
		amount, err := invoice.ParseAmount(b.Importo.String())
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: %w", b.NumeroBolletta, err))
		}

		inv := invoice.Invoice{
			ID:           b.NumeroBolletta,
			DocumentDate: docDate,
			DueDate:      dueDate,
			Amount:       amount,
			ClientCode:   a.clientCode,
		}
		if inv.InWindow(start, end) {
			out = append(out, inv)
		}
	}

	return out, nil
}

// DownloadInvoice fetches the PDF through the serviceDAp download endpoint
func (a *Adapter) DownloadInvoice(ctx context.Context, inv invoice.Invoice) ([]byte, error) {
	if err := a.ensureAccount(ctx); err != nil {
		return nil, errors.DownloadError(Name, inv.ID, err)
	}

	docURL := a.baseURL + fmt.Sprintf(downloadFmt, a.accountCode) +
		"?numeroFattura=" + inv.ID + "&channel=PORTAL"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, errors.DownloadError(Name, inv.ID, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.DownloadError(Name, inv.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.DownloadError(Name, inv.ID,
			fmt.Errorf("HTTP %d from %s", resp.StatusCode, resp.Request.URL))
	}
	return io.ReadAll(resp.Body)
}

func (a *Adapter) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *Adapter) getDiscard(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
