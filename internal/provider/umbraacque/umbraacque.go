package umbraacque

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

	"github.com/bollettalabs/bolletta-sync/internal/captcha"
	"github.com/bollettalabs/bolletta-sync/internal/domain/invoice"
	"github.com/bollettalabs/bolletta-sync/internal/pkg/errors"
	"github.com/bollettalabs/bolletta-sync/internal/provider"
)

// Name is the provider identifier
const Name = "umbra_acque"

const (
	defaultBaseURL = "https://www.myumbraacque.it"
	defaultAuthURL = "https://accounts.eu1.gigya.com"

	gigyaLoginPath = "/accounts.login"
	utenzePath     = "/bin/acea-myacea/utenze"
	invoicesPath   = "/bin/acea-myacea/invoicesAndBalance"
	downloadPath   = "/bin/acea-myacea/downloadInvoice"

	// Gigya API key and reCAPTCHA v3 site key of the MyUmbra login widget
	gigyaAPIKey = "4_Ej2mVX0V1kJdJ4RTDz9u0g"
	siteKey     = "6LcVv8kZAAAAAO3Q1p2zFh7y5c6W6R9iXq1T40xz"

	sessionCookie = "login_token"
)

// Adapter syncs water bills from the MyUmbra Acque portal. Identity is
// delegated to a Gigya CIAM tenant: accounts.login takes the credentials
// plus a reCAPTCHA v3 token and hands back a login token, which the portal
// accepts as a cookie.
type Adapter struct {
	provider.Base

	username string
	password string
	baseURL  string
	authURL  string
	solver   captcha.Solver
	client   *http.Client

	contractPk string
}

// New builds an umbra_acque adapter for one sync pass
func New(deps provider.Deps) (provider.Provider, error) {
	creds := deps.Credentials
	if creds.Username == "" || creds.Password == "" {
		return nil, errors.ConfigurationError(Name, "UMBRA_ACQUE_USERNAME and UMBRA_ACQUE_PASSWORD must be set")
	}
	if deps.Solver == nil {
		return nil, errors.ConfigurationError(Name, "CAPTCHA_API_KEY must be set for the umbra_acque login")
	}

	baseURL := defaultBaseURL
	if deps.BaseURL != "" {
		baseURL = deps.BaseURL
	}
	authURL := defaultAuthURL
	if deps.AuthBaseURL != "" {
		authURL = deps.AuthBaseURL
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
		authURL:  strings.TrimSuffix(authURL, "/"),
		solver:   deps.Solver,
		client: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}, nil
}

type gigyaResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	SessionInfo  struct {
		LoginToken string `json:"login_token"`
	} `json:"sessionInfo"`
}

// Authenticate logs in against the Gigya tenant and installs the returned
// login token as a portal cookie. Already holding the cookie is a no-op.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if provider.HasCookie(a.client.Jar, a.baseURL, sessionCookie) {
		a.Log().Debug("login token present, skipping login")
		return nil
	}

	token, err := a.solver.Solve(ctx, siteKey, a.baseURL+"/", captcha.V3)
	if err != nil {
		return errors.AuthenticationError(Name, fmt.Errorf("captcha solve failed: %w", err))
	}

	form := url.Values{}
	form.Set("loginID", a.username)
	form.Set("password", a.password)
	form.Set("APIKey", gigyaAPIKey)
	form.Set("sessionExpiration", "0")
	form.Set("captchaToken", token)
	form.Set("captchaType", "reCaptchaV3")
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.authURL+gigyaLoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.AuthenticationError(Name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.AuthenticationError(Name, err)
	}
	defer resp.Body.Close()

	var result gigyaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.AuthenticationError(Name, fmt.Errorf("bad gigya response: %w", err))
	}
	if result.ErrorCode != 0 {
		return errors.AuthenticationError(Name,
			fmt.Errorf("gigya rejected the login: %d %s", result.ErrorCode, result.ErrorMessage))
	}
	if result.SessionInfo.LoginToken == "" {
		return errors.AuthenticationError(Name, fmt.Errorf("gigya response carried no login token"))
	}

	portalURL, err := url.Parse(a.baseURL)
	if err != nil {
		return errors.AuthenticationError(Name, err)
	}
	a.client.Jar.SetCookies(portalURL, []*http.Cookie{{
		Name:  sessionCookie,
		Value: result.SessionInfo.LoginToken,
		Path:  "/",
	}})

	a.Log().Info("logged in")
	return nil
}

// ensureContract resolves the supply contract key, once per pass
func (a *Adapter) ensureContract(ctx context.Context) error {
	if a.contractPk != "" {
		return nil
	}

	var result struct {
		Data []struct {
			ContractPk string `json:"contractPk"`
		} `json:"data"`
	}
	if err := a.getJSON(ctx, a.baseURL+utenzePath, &result); err != nil {
		return err
	}
	if len(result.Data) == 0 {
		return fmt.Errorf("portal returned no supply contracts")
	}

	a.contractPk = result.Data[0].ContractPk
	return nil
}

type portalInvoice struct {
	InvoiceNumber string      `json:"invoiceNumber"`
	IssueDate     string      `json:"issueDate"`
	ExpiryDate    string      `json:"expiryDate"`
	Total         json.Number `json:"total"`
	ContractID    string      `json:"contractId"`
}

// ListInvoices lists bills for the first supply contract, filtered to the
// inclusive window
func (a *Adapter) ListInvoices(ctx context.Context, start, end time.Time) ([]invoice.Invoice, error) {
	if err := a.ensureContract(ctx); err != nil {
		return nil, errors.ProviderError(Name, err)
	}

	var result struct {
		Body struct {
			Invoices []portalInvoice `json:"invoices"`
		} `json:"body"`
	}
	listURL := a.baseURL + invoicesPath + "?contractPk=" + url.QueryEscape(a.contractPk)
	if err := a.getJSON(ctx, listURL, &result); err != nil {
		return nil, errors.ProviderError(Name, err)
	}

	var out []invoice.Invoice
	for _, p := range result.Body.Invoices {
		docDate, err := invoice.ParseDate(p.IssueDate)
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: bad issue date %q: %w", p.InvoiceNumber, p.IssueDate, err))
		}
		dueDate, err := invoice.ParseDate(p.ExpiryDate)
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: bad expiry date %q: %w", p.InvoiceNumber, p.ExpiryDate, err))
		}
		amount, err := invoice.ParseAmount(p.Total.String())
		if err != nil {
			return nil, errors.ProviderError(Name, fmt.Errorf("invoice %s: %w", p.InvoiceNumber, err))
		}

		inv := invoice.Invoice{
			ID:           p.InvoiceNumber,
			DocumentDate: docDate,
			DueDate:      dueDate,
			Amount:       amount,
			ClientCode:   p.ContractID,
		}
		if inv.InWindow(start, end) {
			out = append(out, inv)
		}
	}

	return out, nil
}

// DownloadInvoice fetches the bill PDF for the resolved contract
func (a *Adapter) DownloadInvoice(ctx context.Context, inv invoice.Invoice) ([]byte, error) {
	if err := a.ensureContract(ctx); err != nil {
		return nil, errors.DownloadError(Name, inv.ID, err)
	}

	docURL := a.baseURL + downloadPath +
		"?contractPk=" + url.QueryEscape(a.contractPk) +
		"&invoiceNumber=" + url.QueryEscape(inv.ID)

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
