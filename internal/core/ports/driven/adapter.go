package driven

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// Adapter is the uniform contract every provider implements. The Registry
// and the agent-execution engine treat all providers through this one
// interface: a dispatch table of action name -> behavior per provider
// instead of a bespoke call site per provider per call-site.
//
// An Adapter instance is transient: built fresh from a decrypted
// integration record for the lifetime of one request.
type Adapter interface {
	// Provider returns the provider discriminant string.
	Provider() domain.Provider

	// Authenticate validates the credentials the adapter was built with.
	// For API-key providers with custom keys this is a format check; for
	// OAuth providers it verifies token material is present. It never
	// silently accepts invalid platform configuration.
	Authenticate(ctx context.Context) error

	// TestConnection performs a cheap, side-effect-free call against the
	// provider to confirm the credentials still work. It requires no
	// caller-supplied parameters.
	TestConnection(ctx context.Context) (*domain.TestResult, error)

	// ExecuteAction is the single dynamic-dispatch entry point. Unknown
	// action names fail with domain.ErrUnknownAction naming the offending
	// string and the provider.
	ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error)

	// Capabilities enumerates the action names this adapter supports,
	// without invoking anything.
	Capabilities() []string

	// ConfigSchema declares what credential fields the provider needs and
	// whether connection is redirect-based OAuth or direct field entry.
	ConfigSchema() ConfigSchema
}

// WebhookReceiver is implemented by adapters that accept inbound events
// (email, SMS). HandleWebhook parses a provider callback payload into a
// normalized inbound message.
type WebhookReceiver interface {
	HandleWebhook(ctx context.Context, payload []byte) (*domain.InboundMessage, error)
}

// AuthKind describes how a provider is connected.
type AuthKind string

const (
	AuthKindOAuth  AuthKind = "oauth"
	AuthKindAPIKey AuthKind = "api_key"
	AuthKindCustom AuthKind = "custom"
)

// ConfigField describes one credential or config input for the connect form.
type ConfigField struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Secret      bool   `json:"secret"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
}

// ConfigSchema declares a provider's connect-flow shape for the dashboard.
type ConfigSchema struct {
	Auth    AuthKind      `json:"auth"`
	Fields  []ConfigField `json:"fields,omitempty"`
	AuthURL string        `json:"auth_url,omitempty"`
}

// TokenPersister is installed by the Registry on OAuth adapters so a
// refreshed token is written back to the integration record. The Registry
// is the single writer for refreshed credentials.
type TokenPersister func(ctx context.Context, creds *domain.Credentials) error
