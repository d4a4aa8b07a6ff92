// Package providers implements the provider adapters and the factory
// that dispatches an integration record to the right one.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// TokenEndpoint is a provider's OAuth token endpoint plus app credentials.
type TokenEndpoint struct {
	URL          string
	ClientID     string
	ClientSecret string
}

// TokenResponse is the decoded token endpoint reply.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// TokenManager keeps one adapter's OAuth tokens valid. Every provider
// call goes through EnsureValidToken, which refreshes when the token is
// within five minutes of expiry. A token with unknown expiry is treated
// as fresh until the provider itself rejects it.
//
// Refresh updates in-memory state and, when the Registry has installed a
// persist callback, writes the new token back to the integration record.
type TokenManager struct {
	mu       sync.Mutex
	creds    *domain.Credentials
	endpoint TokenEndpoint
	client   *http.Client
	persist  driven.TokenPersister
	logger   *slog.Logger
}

// NewTokenManager creates a token manager for one adapter instance.
func NewTokenManager(creds *domain.Credentials, endpoint TokenEndpoint) *TokenManager {
	return &TokenManager{
		creds:    creds,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
}

// OnRefresh installs the persist callback. The Registry is the single
// writer of refreshed credentials.
func (m *TokenManager) OnRefresh(persist driven.TokenPersister) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persist = persist
}

// Credentials returns the current in-memory credentials.
func (m *TokenManager) Credentials() *domain.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds
}

// EnsureValidToken returns a usable access token, refreshing first when
// the token is stale. A missing token or a failed refresh surfaces
// domain.ErrReauthRequired so callers can tell the user to reconnect.
func (m *TokenManager) EnsureValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.creds.HasOAuthToken() {
		return "", fmt.Errorf("%w: no access token on record", domain.ErrReauthRequired)
	}

	if m.creds.NeedsRefresh() {
		if err := m.refreshLocked(ctx); err != nil {
			return "", err
		}
	}

	return m.creds.AccessToken, nil
}

// refreshLocked exchanges the refresh token for a new access token.
// Caller holds m.mu.
func (m *TokenManager) refreshLocked(ctx context.Context) error {
	if m.creds.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token on record", domain.ErrReauthRequired)
	}

	resp, err := PostTokenRequest(ctx, m.client, m.endpoint.URL, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.creds.RefreshToken},
		"client_id":     {m.endpoint.ClientID},
		"client_secret": {m.endpoint.ClientSecret},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReauthRequired, err)
	}

	m.creds.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		m.creds.RefreshToken = resp.RefreshToken
	}
	if resp.ExpiresIn > 0 {
		expiry := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		m.creds.TokenExpiresAt = &expiry
	} else {
		m.creds.TokenExpiresAt = nil
	}
	if resp.Scope != "" {
		m.creds.Scopes = SplitScopes(resp.Scope)
	}

	if m.persist != nil {
		// The provider call proceeds on the in-memory token either way;
		// a persistence failure only costs a re-refresh next request.
		if err := m.persist(ctx, m.creds); err != nil {
			m.logger.Warn("failed to persist refreshed token", "error", err)
		}
	}

	return nil
}

// PostTokenRequest performs a form-encoded OAuth token call and decodes
// the reply. Non-2xx responses and provider error payloads both fail.
func PostTokenRequest(ctx context.Context, client *http.Client, tokenURL string, params url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if tokenResp.Error != "" {
		return nil, fmt.Errorf("oauth error: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}

	return &tokenResp, nil
}

// ExchangeCode performs the one-shot code-for-token exchange used during
// the initial connect callback.
func ExchangeCode(ctx context.Context, client *http.Client, endpoint TokenEndpoint, code, redirectURI string) (*domain.Credentials, error) {
	resp, err := PostTokenRequest(ctx, client, endpoint.URL, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {endpoint.ClientID},
		"client_secret": {endpoint.ClientSecret},
	})
	if err != nil {
		return nil, err
	}

	creds := &domain.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		expiry := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		creds.TokenExpiresAt = &expiry
	}
	if resp.Scope != "" {
		creds.Scopes = SplitScopes(resp.Scope)
	}

	return creds, nil
}

// BuildAuthCodeURL assembles a consent-screen redirect URL.
func BuildAuthCodeURL(authURL, clientID, redirectURI, state string, scopes []string, extra url.Values) string {
	params := url.Values{
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"state":         {state},
	}
	if len(scopes) > 0 {
		params.Set("scope", strings.Join(scopes, " "))
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	return authURL + "?" + params.Encode()
}

// SplitScopes splits a space-separated scope string.
func SplitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}
