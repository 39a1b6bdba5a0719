package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// TriggerSync runs a sync pass and waits for the full report
func (c *Client) TriggerSync(ctx context.Context, req SyncRequest) (*Report, error) {
	var report Report
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListProviders returns the registered portal adapters
func (c *Client) ListProviders(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/providers", nil, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// ListRuns returns recent sync runs, newest first. limit <= 0 uses the
// server default.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	path := "/api/v1/runs"
	if limit > 0 {
		path += "?" + url.Values{"limit": []string{strconv.Itoa(limit)}}.Encode()
	}

	var runs []Run
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns one recorded run with per-provider detail
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
