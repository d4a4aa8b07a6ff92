// Package google implements the Google Workspace adapters (Calendar,
// Gmail, Drive, Docs, Sheets). They share one OAuth app and one token
// manager pattern; each service adapter adds its own action surface.
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const (
	authURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenURL = "https://oauth2.googleapis.com/token"
)

// OAuthConfig is the platform's Google OAuth app.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
}

// Endpoint returns the token endpoint bound to the app credentials.
func (c OAuthConfig) Endpoint() providers.TokenEndpoint {
	return providers.TokenEndpoint{
		URL:          tokenURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

// AuthCodeURL builds the Google consent URL. Offline access with forced
// consent is required or Google omits the refresh token on re-connect.
func (c OAuthConfig) AuthCodeURL(redirectURI, state string, scopes []string) string {
	return providers.BuildAuthCodeURL(authURL, c.ClientID, redirectURI, state, scopes, url.Values{
		"access_type": {"offline"},
		"prompt":      {"consent"},
	})
}

// ScopesFor returns the OAuth scopes a Google service adapter needs.
func ScopesFor(provider domain.Provider) []string {
	switch provider {
	case domain.ProviderGoogleCalendar:
		return []string{"https://www.googleapis.com/auth/calendar"}
	case domain.ProviderGmail:
		return []string{
			"https://www.googleapis.com/auth/gmail.send",
			"https://www.googleapis.com/auth/gmail.readonly",
		}
	case domain.ProviderGoogleDrive:
		return []string{"https://www.googleapis.com/auth/drive"}
	case domain.ProviderGoogleDocs:
		return []string{"https://www.googleapis.com/auth/documents"}
	case domain.ProviderGoogleSheets:
		return []string{"https://www.googleapis.com/auth/spreadsheets"}
	default:
		return nil
	}
}

// base is the shared machinery of every Google service adapter: a token
// manager that keeps the access token fresh and an authenticated call
// helper.
type base struct {
	tokens *providers.TokenManager
	client *http.Client
}

func newBase(creds *domain.Credentials, cfg OAuthConfig) *base {
	return &base{
		tokens: providers.NewTokenManager(creds, cfg.Endpoint()),
		client: providers.NewHTTPClient(),
	}
}

// OnRefresh forwards the persist callback to the token manager.
func (b *base) OnRefresh(persist driven.TokenPersister) {
	b.tokens.OnRefresh(persist)
}

// Authenticate verifies token material is present. Liveness is checked
// by TestConnection, not here.
func (b *base) Authenticate(ctx context.Context) error {
	if !b.tokens.Credentials().HasOAuthToken() {
		return fmt.Errorf("%w: google connection has no access token", domain.ErrInvalidCredentials)
	}
	return nil
}

// do performs an authenticated Google API call, refreshing the token
// first when needed.
func (b *base) do(ctx context.Context, method, callURL string, body, out any) error {
	token, err := b.tokens.EnsureValidToken(ctx)
	if err != nil {
		return err
	}
	return providers.DoJSON(ctx, b.client, providers.Request{
		Method:   method,
		URL:      callURL,
		Headers:  map[string]string{"Authorization": "Bearer " + token},
		JSONBody: body,
	}, out)
}

func oauthSchema(provider domain.Provider) driven.ConfigSchema {
	return driven.ConfigSchema{
		Auth:    driven.AuthKindOAuth,
		AuthURL: "/api/v1/oauth/authorize?provider=" + string(provider),
	}
}
