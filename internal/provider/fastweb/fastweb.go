package fastweb

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
const Name = "fastweb"

const (
	defaultBaseURL = "https://fastweb.it"

	loginPagePath   = "/myfastweb/accesso/login/"
	loginAjaxPath   = "/myfastweb/accesso/login/ajax/"
	homePath        = "/myfastweb/"
	chooserPath     = "/myfastweb/accesso/seleziona-codice-cliente/"
	profilePath     = "/myfastweb/accesso/profile/"
	invoicesPath    = "/myfastweb/abbonamento/le-mie-fatture/"
	invoicesAjax    = "/myfastweb/abbonamento/le-mie-fatture/ajax/index.php"

	downloadPathFmt = "/myfastweb/abbonamento/le-mie-fatture/download/%s.pdf"

	sessionCookie = "PHPSESSID"
)

// Adapter syncs invoices from the MyFastweb portal. The portal serves one
// session for several client codes; every listing or download must first
// select the owning code's profile.
type Adapter struct {
	provider.Base

	username    string
	password    string
	clientCodes []string
	baseURL     string
	client      *http.Client

	// activeCode tracks which profile the session currently points at
	activeCode string
}

// New builds a fastweb adapter for one sync pass
func New(deps provider.Deps) (provider.Provider, error) {
	creds := deps.Credentials
	if creds.Username == "" || creds.Password == "" {
		return nil, errors.ConfigurationError(Name, "FASTWEB_USERNAME and FASTWEB_PASSWORD must be set")
	}
	if len(creds.ClientCodes) == 0 {
		return nil, errors.ConfigurationError(Name, "FASTWEB_CLIENT_CODE must be set")
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
		Base:        provider.NewBase(Name, deps.Sink, deps.Logger),
		username:    creds.Username,
		password:    creds.Password,
		clientCodes: creds.ClientCodes,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Authenticate performs the securityToken form login. A live PHPSESSID
// session is reused as-is.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if provider.HasCookie(a.client.Jar, a.baseURL, sessionCookie) {
		a.Log().Debug("session cookie present, skipping login")
		return nil
	}
	return a.login(ctx)
}

func (a *Adapter) login(ctx context.Context) error {
	a.activeCode = ""

	token, err := a.scrapeSecurityToken(ctx, a.baseURL+loginPagePath)
	if err != nil {
		return errors.AuthenticationError(Name, err)
	}

	form := url.Values{}
	form.Set("securityToken", token)
	form.Set("request_id", "")
	form.Set("PersistentLogin", "")
	form.Set("OAM_REQ", "")
	form.Set("accountLinking", "")
	form.Set("redirect_uri", "")
	form.Set("state", "")
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

// selectProfile switches the session to the given client code. The portal
// redirects to an account chooser when the session has no active profile;
// a redirect back to the login page means the session expired, in which
// case we log in again and retry once.
func (a *Adapter) selectProfile(ctx context.Context, clientCode string) error {
	if a.activeCode == clientCode {
		return nil
	}

	for attempt := 0; ; attempt++ {
		landing, err := a.get(ctx, a.baseURL+homePath)
		if err != nil {
			return errors.ProviderError(Name, err)
		}
		finalURL := landing.Request.URL.String()
		landing.Body.Close()

		if strings.HasPrefix(finalURL, a.baseURL+loginPagePath) {
			if attempt > 0 {
				return errors.AuthenticationError(Name, fmt.Errorf("session expired and re-login did not stick"))
			}
			a.Log().Warn("session expired, re-authenticating")
			if err := a.login(ctx); err != nil {
				return err
			}
			continue
		}

		if strings.HasPrefix(finalURL, a.baseURL+chooserPath) {
			form := url.Values{"account": {clientCode}}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				a.baseURL+profilePath, strings.NewReader(form.Encode()))
			if err != nil {
				return errors.ProviderError(Name, err)
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, err := a.client.Do(req)
			if err != nil {
				return errors.ProviderError(Name, err)
			}
			finalURL = resp.Request.URL.String()
			resp.Body.Close()
			if finalURL != a.baseURL+homePath {
				return errors.AuthenticationError(Name,
					fmt.Errorf("profile selection for client code %s landed on %s", clientCode, finalURL))
			}
		}

		a.activeCode = clientCode
		return nil
	}
}

// invoiceEntry is the shape of one row in the portal's loadInvoiceList
// response.
type invoiceEntry struct {
	NumDoc       string      `json:"NumDoc"`
	DocDateYMD   string      `json:"DocDateYMD"`
	DocExpireYMD string      `json:"DocExpireDateYMD"`
	DocAmount    json.Number `json:"DocAmount"`
}

// ListInvoices iterates every configured client code and concatenates the
// in-window invoices across codes. A failure on any code discards the
// partial result: the listing is all-or-nothing.
func (a *Adapter) ListInvoices(ctx context.Context, start, end time.Time) ([]invoice.Invoice, error) {
	var all []invoice.Invoice

	for _, code := range a.clientCodes {
		a.Log().With("client_code", code).Debug("listing invoices")
		if err := a.selectProfile(ctx, code); err != nil {
			return nil, err
		}

		token, err := a.scrapeSecurityToken(ctx, a.baseURL+invoicesPath)
		if err != nil {
			return nil, errors.ProviderError(Name, err)
		}

		var result struct {
			InvoiceList []invoiceEntry `json:"invoiceList"`
		}
		form := url.Values{
			"action":        {"loadInvoiceList"},
			"securityToken": {token},
		}
		if err := a.postForm(ctx, a.baseURL+invoicesAjax+"?action=loadInvoiceList", form, &result); err != nil {
			return nil, errors.ProviderError(Name, err)
		}

		for _, entry := range result.InvoiceList {
			inv, err := entryToInvoice(entry, code)
			if err != nil {
				return nil, errors.ProviderError(Name, err)
			}
			if inv.InWindow(start, end) {
				all = append(all, inv)
			}
		}
	}

	return all, nil
}

func entryToInvoice(entry invoiceEntry, clientCode string) (invoice.Invoice, error) {
	docDate, err := invoice.ParseDate(entry.DocDateYMD)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("invoice %s: bad document date: %w", entry.NumDoc, err)
	}
	dueDate, err := invoice.ParseDate(entry.DocExpireYMD)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("invoice %s: bad due date: %w", entry.NumDoc, err)
	}
	amount, err := invoice.ParseAmount(entry.DocAmount.String())
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("invoice %s: %w", entry.NumDoc, err)
	}
	return invoice.Invoice{
		ID:           entry.NumDoc,
		DocumentDate: docDate,
		DueDate:      dueDate,
		Amount:       amount,
		ClientCode:   clientCode,
	}, nil
}

// DownloadInvoice fetches the PDF for one invoice, re-selecting the owning
// client code's profile first.
func (a *Adapter) DownloadInvoice(ctx context.Context, inv invoice.Invoice) ([]byte, error) {
	if err := a.selectProfile(ctx, inv.ClientCode); err != nil {
		return nil, err
	}

	resp, err := a.get(ctx, a.baseURL+fmt.Sprintf(downloadPathFmt, inv.ID))
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

// HTTP helpers

func (a *Adapter) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return a.client.Do(req)
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

// scrapeSecurityToken fetches a portal page and extracts the hidden
// securityToken input that guards every form POST.
func (a *Adapter) scrapeSecurityToken(ctx context.Context, pageURL string) (string, error) {
	resp, err := a.get(ctx, pageURL)
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
