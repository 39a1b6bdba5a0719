package fastwebenergia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
)

// Name is the provider identifier
const Name = "fastweb_energia"

const (
	defaultBaseURL = "https://www.fastweb.it"

	loginPagePath = "/myfastweb-energia/login/"
	loginAjaxPath = "/myfastweb-energia/login/ajax/"
	invoicesPath  = "/myfastweb-energia/services/invoices/"

	sessionCookie = "PHPSESSID"
)

// Adapter syncs invoices from the MyFastweb Energia portal. Single
// account: the configured username doubles as the client code.
type Adapter struct {
	provider.Base

	username string
	password string
	baseURL  string
	client   *http.Client
}

// New builds a fastweb_energia adapter for one sync pass
func New(deps provider.Deps) (provider.Provider, error) {
	creds := deps.Credentials
	if creds.Username == "" || creds.Password == "" {
		return nil, errors.ConfigurationError(Name, "FASTWEB_ENERGIA_USERNAME and FASTWEB_ENERGIA_PASSWORD must be set")
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
		client: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Authenticate performs the securityToken form login, reusing a live
// session when the portal cookie is still present.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if provider.HasCookie(a.client.Jar, a.baseURL, sessionCookie) {
		a.Log().Debug("session cookie present, skipping login")
		return nil
	}

	token, err := a.scrapeSecurityToken(ctx, a.baseURL+loginPagePath)
	if err != nil {
		return errors.AuthenticationError(Name, err)
	}

	form := url.Values{}
	form.Set("securityToken", token)
	form.Set("DirectLink", "/myfastweb-energia/")
	form.Set("username", a.username)
	form.Set("password", a.password)
	form.Set("g-recaptcha-response", "")
	form.Set("g-recaptcha-response-unified", "")

	var result struct {
		ErrorCode    int    `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := a.postForm(ctx, a.baseURL+loginAjaxPath, form, &result); err != nil {
		return errors.AuthenticationError(Name, err)
	}
	if result.ErrorCode != 0 {
		return errors.AuthenticationError(Name,
			fmt.Errorf("login rejected (errorCode %d): %s", result.ErrorCode, result.ErrorMessage))
	}

	a.Log().Info("logged in")
	return nil
}

type invoiceEntry struct {
	NumDoc       string      `json:"NumDoc"`
	DocDateYMD   string      `json:"DocDateYMD"`
	DocExpireYMD string      `json:"DocExpireDateYMD"`
	DocAmount    json.Number `json:"DocAmount"`
}

// ListInvoices loads the invoice list and filters it to the inclusive
// window.
func (a *Adapter) ListInvoices(ctx context.Context, start, end time.Time) ([]invoice.Invoice, error) {
	form := url.Values{}
	form.Set("action", "loadInvoiceList")

	var result struct {
		InvoiceList []invoiceEntry `json:"invoiceList"`
	}
	if err := a.postForm(ctx, a.baseURL+invoicesPath, form, &result); err != nil {
		return nil, errors.ProviderError(Name, err)
	}

	var out []invoice.Invoice
	for _, entry := range result.InvoiceList {
		docDate, err := invoice.ParseDate(entry.DocDateYMD)
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: bad document date: %w", entry.NumDoc, err))
		}
		dueDate, err := invoice.ParseDate(entry.DocExpireYMD)
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: bad due date: %w", entry.NumDoc, err))
		}
		amount, err := invoice.ParseAmount(entry.DocAmount.String())
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: %w", entry.NumDoc, err))
		}

		inv := invoice.Invoice{
			ID:           entry.NumDoc,
			DocumentDate: docDate,
			DueDate:      dueDate,
			Amount:       amount,
			ClientCode:   a.username,
		}
		if inv.InWindow(start, end) {
			out = append(out, inv)
		}
	}

	return out, nil
}

// DownloadInvoice fetches the PDF; the portal keys documents by invoice
// number and document date.
func (a *Adapter) DownloadInvoice(ctx context.Context, inv invoice.Invoice) ([]byte, error) {
	docURL := fmt.Sprintf("%s/myfastweb-energia/bollette/download/%s-%s.pdf",
		a.baseURL, inv.ID, inv.DocumentDate.Format(invoice.DateLayout))

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

func (a *Adapter) postForm(ctx context.Context, rawURL string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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

func (a *Adapter) scrapeSecurityToken(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	token, ok := doc.Find(`input[name="securityToken"]`).Attr("value")
	if !ok || token == "" {
		return "", fmt.Errorf("securityToken not found on %s", pageURL)
	}
	return token, nil
}
