package driving

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// AuthorizeRequest starts an OAuth connect flow for a provider.
type AuthorizeRequest struct {
	TenantID string          `json:"tenant_id"`
	Provider domain.Provider `json:"provider"`
}

// AuthorizeResponse carries the consent-screen redirect.
type AuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	ExpiresAt        string `json:"expires_at"`
}

// CallbackRequest is the provider redirect back to us.
type CallbackRequest struct {
	State            string `json:"state"`
	Code             string `json:"code"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// CallbackResponse reports the completed connection.
type CallbackResponse struct {
	Integration *domain.IntegrationSummary `json:"integration"`
}

// OAuthError is an error relayed from the provider's consent screen.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return "oauth error: " + e.Code + " - " + e.Description
	}
	return "oauth error: " + e.Code
}

// OAuthService drives the redirect-based connect flow for OAuth providers.
type OAuthService interface {
	// Authorize generates CSRF state, stores it, and returns the
	// provider's consent URL.
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// Callback validates state, exchanges the code for tokens, and
	// persists the encrypted integration record as connected.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)
}
