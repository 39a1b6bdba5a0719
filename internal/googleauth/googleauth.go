package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/tasks/v1"
)

// Manager owns the single Google credential shared by every provider's
// storage and reminder calls during a sync pass.
type Manager struct {
	credentialsPath string
	tokenPath       string
	config          *oauth2.Config
}

// NewManager creates a credential manager reading the OAuth client secret
// from credentialsPath and caching the refreshable token at tokenPath.
func NewManager(credentialsPath, tokenPath string) *Manager {
	return &Manager{
		credentialsPath: credentialsPath,
		tokenPath:       tokenPath,
	}
}

func (m *Manager) oauthConfig() (*oauth2.Config, error) {
	if m.config != nil {
		return m.config, nil
	}

	data, err := os.ReadFile(m.credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google credentials file: %w", err)
	}

	cfg, err := google.ConfigFromJSON(data, drive.DriveFileScope, tasks.TasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid Google credentials file: %w", err)
	}
	m.config = cfg
	return cfg, nil
}

// TokenSource returns a self-refreshing token source backed by the token
// file. An expired access token is refreshed in place before the pass
// begins; a missing token file requires Authorize first.
func (m *Manager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := m.oauthConfig()
	if err != nil {
		return nil, err
	}

	tok, err := m.loadToken()
	if err != nil {
		return nil, fmt.Errorf("no stored Google token, run the authorize flow first: %w", err)
	}

	src := cfg.TokenSource(ctx, tok)
	fresh, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh Google token: %w", err)
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := m.saveToken(fresh); err != nil {
			return nil, err
		}
	}

	return oauth2.ReuseTokenSource(fresh, src), nil
}

// AuthURL returns the URL the user must visit to grant access
func (m *Manager) AuthURL() (string, error) {
	cfg, err := m.oauthConfig()
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// Authorize exchanges the pasted authorization code and persists the token
func (m *Manager) Authorize(ctx context.Context, code string) error {
	cfg, err := m.oauthConfig()
	if err != nil {
		return err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return m.saveToken(tok)
}

// HasToken reports whether a stored token file is present
func (m *Manager) HasToken() bool {
	_, err := os.Stat(m.tokenPath)
	return err == nil
}

func (m *Manager) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(m.tokenPath)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file: %w", err)
	}
	return &tok, nil
}

func (m *Manager) saveToken(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(m.tokenPath, data, 0600)
}
