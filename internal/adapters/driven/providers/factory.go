package providers

import (
	"fmt"
	"log/slog"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// Refreshable is implemented by adapters whose tokens can rotate at
// runtime. The Registry installs the persist callback through it.
type Refreshable interface {
	OnRefresh(driven.TokenPersister)
}

// Builder constructs one provider's adapter from a decrypted record.
// Registered by each provider package via the factory to avoid an
// import cycle between this package and its subpackages.
type Builder func(integration *domain.Integration, creds *domain.Credentials, deps BuildDeps) driven.Adapter

// BuildDeps is everything a provider constructor may need beyond the
// integration record itself.
type BuildDeps struct {
	Usage   *UsageGate
	Google  OAuthAppConfig
	HubSpot OAuthAppConfig
	Email   PlatformEmailConfig
	SMS     PlatformSMSConfig
}

// OAuthAppConfig is a platform OAuth app (client id and secret) plus
// provider endpoints, passed through to OAuth-based constructors.
type OAuthAppConfig struct {
	ClientID     string
	ClientSecret string
}

// OAuthApps holds the platform's registered OAuth applications, one
// per provider family that connects through the redirect flow.
type OAuthApps struct {
	Google  OAuthAppConfig
	HubSpot OAuthAppConfig
	Notion  OAuthAppConfig
}

// PlatformEmailConfig is the platform's shared email sending tier.
type PlatformEmailConfig struct {
	APIKey string
	From   string
}

// PlatformSMSConfig is the platform's shared SMS sending tier, used
// when a tenant connects Twilio without their own account.
type PlatformSMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Factory dispatches an integration record to its provider's
// constructor. There is exactly one authoritative mapping from provider
// discriminant to adapter; an unknown discriminant is an error the
// caller decides how to handle.
type Factory struct {
	usage    driven.UsageStore
	google   OAuthAppConfig
	hubspot  OAuthAppConfig
	email    PlatformEmailConfig
	sms      PlatformSMSConfig
	builders map[domain.Provider]Builder
	logger   *slog.Logger
}

// FactoryConfig wires platform-level provider settings.
type FactoryConfig struct {
	Usage   driven.UsageStore
	Google  OAuthAppConfig
	HubSpot OAuthAppConfig
	Email   PlatformEmailConfig
	SMS     PlatformSMSConfig
	Logger  *slog.Logger
}

// NewFactory creates an empty factory; provider packages are attached
// with Register.
func NewFactory(cfg FactoryConfig) *Factory {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		usage:    cfg.Usage,
		google:   cfg.Google,
		hubspot:  cfg.HubSpot,
		email:    cfg.Email,
		sms:      cfg.SMS,
		builders: make(map[domain.Provider]Builder),
		logger:   logger,
	}
}

// Register binds a provider discriminant to its constructor. Last
// registration wins, which lets tests stub single providers.
func (f *Factory) Register(provider domain.Provider, builder Builder) {
	f.builders[provider] = builder
}

// Known reports whether a provider has a registered constructor.
func (f *Factory) Known(provider domain.Provider) bool {
	_, ok := f.builders[provider]
	return ok
}

// Providers lists the registered providers.
func (f *Factory) Providers() []domain.Provider {
	out := make([]domain.Provider, 0, len(f.builders))
	for _, p := range domain.CoreProviders() {
		if _, ok := f.builders[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Build constructs the adapter for one integration record. The plan
// scopes the usage gate for metered providers.
func (f *Factory) Build(integration *domain.Integration, creds *domain.Credentials, plan domain.Plan) (driven.Adapter, error) {
	builder, ok := f.builders[integration.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, integration.Provider)
	}

	deps := BuildDeps{
		Usage:   NewUsageGate(f.usage, plan, integration.TenantID, f.logger),
		Google:  f.google,
		HubSpot: f.hubspot,
		Email:   PlatformEmailConfig{APIKey: f.email.APIKey, From: f.email.From},
		SMS:     f.sms,
	}
	return builder(integration, creds, deps), nil
}

// Schema returns the connect-flow schema for a provider without
// needing a stored record.
func (f *Factory) Schema(provider domain.Provider) (driven.ConfigSchema, error) {
	adapter, err := f.Build(&domain.Integration{Provider: provider}, &domain.Credentials{}, domain.PlanFree)
	if err != nil {
		return driven.ConfigSchema{}, err
	}
	return adapter.ConfigSchema(), nil
}

// Capabilities returns a provider's action names without a stored
// record.
func (f *Factory) Capabilities(provider domain.Provider) ([]string, error) {
	adapter, err := f.Build(&domain.Integration{Provider: provider}, &domain.Credentials{}, domain.PlanFree)
	if err != nil {
		return nil, err
	}
	return adapter.Capabilities(), nil
}
