package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Version selects the reCAPTCHA variant to solve
type Version string

const (
	V2 Version = "v2"
	V3 Version = "v3"
)

var pollInterval = 5 * time.Second

// Solver obtains reCAPTCHA response tokens for CAPTCHA-gated portal logins
type Solver interface {
	Solve(ctx context.Context, siteKey, pageURL string, version Version) (string, error)
}

// Client solves CAPTCHAs through a 2captcha-compatible HTTP API
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a solver client. baseURL defaults to the 2captcha
// endpoint when empty.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://2captcha.com"
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// Solve submits the CAPTCHA task and polls until a token is ready or the
// solver deadline expires.
func (c *Client) Solve(ctx context.Context, siteKey, pageURL string, version Version) (string, error) {
	taskID, err := c.submit(ctx, siteKey, pageURL, version)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("captcha solve timed out: %w", ctx.Err())
		case <-ticker.C:
			token, ready, err := c.poll(ctx, taskID)
			if err != nil {
				return "", err
			}
			if ready {
				return token, nil
			}
		}
	}
}

func (c *Client) submit(ctx context.Context, siteKey, pageURL string, version Version) (string, error) {
	params := url.Values{
		"key":       {c.apiKey},
		"method":    {"userrecaptcha"},
		"googlekey": {siteKey},
		"pageurl":   {pageURL},
		"json":      {"1"},
	}
	if version == V3 {
		params.Set("version", "v3")
		params.Set("action", "login")
	}

	resp, err := c.call(ctx, "/in.php", params)
	if err != nil {
		return "", err
	}
	if resp.Status != 1 {
		return "", fmt.Errorf("captcha submit rejected: %s", resp.Request)
	}
	return resp.Request, nil
}

func (c *Client) poll(ctx context.Context, taskID string) (string, bool, error) {
	params := url.Values{
		"key":    {c.apiKey},
		"action": {"get"},
		"id":     {taskID},
		"json":   {"1"},
	}

	resp, err := c.call(ctx, "/res.php", params)
	if err != nil {
		return "", false, err
	}
	if resp.Status == 1 {
		return resp.Request, true, nil
	}
	if resp.Request == "CAPCHA_NOT_READY" {
		return "", false, nil
	}
	return "", false, fmt.Errorf("captcha solve failed: %s", resp.Request)
}

func (c *Client) call(ctx context.Context, path string, params url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("captcha API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("captcha API returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode captcha response: %w", err)
	}
	return &body, nil
}
