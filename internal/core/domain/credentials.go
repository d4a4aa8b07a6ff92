package domain

import "time"

// refreshWindow is how close to expiry a token may get before it is
// proactively refreshed.
const refreshWindow = 5 * time.Minute

// Credentials is the decrypted credential object for one integration.
// The populated fields depend on the provider's auth scheme; the whole
// struct is what the cipher encrypts before persistence.
type Credentials struct {
	// OAuth2 fields
	AccessToken    string     `json:"access_token,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"`

	// API key providers (Resend, Stripe, Notion internal integrations)
	APIKey string `json:"api_key,omitempty"`

	// Twilio
	AccountSID string `json:"account_sid,omitempty"`
	AuthToken  string `json:"auth_token,omitempty"`
	FromNumber string `json:"from_number,omitempty"`

	// Resend
	FromEmail string `json:"from_email,omitempty"`

	// Outbound webhook destinations
	SigningSecret string         `json:"signing_secret,omitempty"`
	Filter        *WebhookFilter `json:"filter,omitempty"`
}

// HasOAuthToken reports whether OAuth tokens are present at all.
func (c *Credentials) HasOAuthToken() bool {
	return c.AccessToken != ""
}

// IsExpired reports whether the access token is past its expiry.
// Unknown expiry is treated as not expired; the provider's own auth
// error is the signal in that case.
func (c *Credentials) IsExpired() bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return time.Now().After(*c.TokenExpiresAt)
}

// NeedsRefresh reports whether the token is within the refresh window.
func (c *Credentials) NeedsRefresh() bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return time.Now().Add(refreshWindow).After(*c.TokenExpiresAt)
}

// UsesPlatformTier reports whether the tenant supplied no custom key and
// the platform-shared credential should be used instead.
func (c *Credentials) UsesPlatformTier() bool {
	return c.APIKey == "" && c.AccountSID == "" && c.AccessToken == ""
}
