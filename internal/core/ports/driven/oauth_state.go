package driven

import (
	"context"
	"time"
)

// OAuthState is a pending OAuth authorization flow awaiting its callback.
type OAuthState struct {
	State       string    `json:"state"`
	TenantID    string    `json:"tenant_id"`
	Provider    string    `json:"provider"`
	RedirectURI string    `json:"redirect_uri"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// OAuthStateStore manages short-lived OAuth flow state for CSRF
// protection. States are single-use.
type OAuthStateStore interface {
	// Save stores a new state with a TTL.
	Save(ctx context.Context, state *OAuthState) error

	// GetAndDelete atomically retrieves and consumes a state.
	// Returns nil (no error) when the state is unknown or expired.
	GetAndDelete(ctx context.Context, state string) (*OAuthState, error)
}
