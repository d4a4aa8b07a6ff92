// Package catalog assembles the provider factory with every adapter
// shipped in this build. It is the single place a new provider is
// plugged in.
package catalog

import (
	"context"
	"fmt"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/google"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/hubspot"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/notion"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/resend"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/stripe"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/twilio"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/webhook"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// New returns a factory with all core providers registered.
func New(cfg providers.FactoryConfig) *providers.Factory {
	f := providers.NewFactory(cfg)

	f.Register(domain.ProviderResend, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return resend.New(i, c, resend.Config{
			PlatformAPIKey: deps.Email.APIKey,
			PlatformFrom:   deps.Email.From,
		}, deps.Usage)
	})

	f.Register(domain.ProviderTwilio, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return twilio.New(i, c, twilio.Config{
			PlatformAccountSID: deps.SMS.AccountSID,
			PlatformAuthToken:  deps.SMS.AuthToken,
			PlatformFrom:       deps.SMS.FromNumber,
		}, deps.Usage)
	})

	f.Register(domain.ProviderGoogleCalendar, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return google.NewCalendar(i, c, googleConfig(deps))
	})
	f.Register(domain.ProviderGmail, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return google.NewGmail(c, googleConfig(deps))
	})
	f.Register(domain.ProviderGoogleDrive, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return google.NewDrive(c, googleConfig(deps))
	})
	f.Register(domain.ProviderGoogleDocs, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return google.NewDocs(c, googleConfig(deps))
	})
	f.Register(domain.ProviderGoogleSheets, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return google.NewSheets(i, c, googleConfig(deps))
	})

	f.Register(domain.ProviderHubSpot, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return hubspot.New(c, hubspot.OAuthConfig{
			ClientID:     deps.HubSpot.ClientID,
			ClientSecret: deps.HubSpot.ClientSecret,
		})
	})
	f.Register(domain.ProviderStripe, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return stripe.New(c)
	})
	f.Register(domain.ProviderNotion, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return notion.New(i, c)
	})
	f.Register(domain.ProviderWebhook, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return webhook.New(i, c)
	})

	return f
}

func googleConfig(deps providers.BuildDeps) google.OAuthConfig {
	return google.OAuthConfig{
		ClientID:     deps.Google.ClientID,
		ClientSecret: deps.Google.ClientSecret,
	}
}

// OAuthProvider reports whether a provider connects through the
// redirect flow.
func OAuthProvider(p domain.Provider) bool {
	switch p {
	case domain.ProviderGoogleCalendar, domain.ProviderGmail,
		domain.ProviderGoogleDrive, domain.ProviderGoogleDocs, domain.ProviderGoogleSheets,
		domain.ProviderHubSpot, domain.ProviderNotion:
		return true
	default:
		return false
	}
}

// AuthCodeURL builds the consent redirect for an OAuth provider.
func AuthCodeURL(apps providers.OAuthApps, p domain.Provider, redirectURI, state string) (string, error) {
	switch {
	case p == domain.ProviderHubSpot:
		hcfg := hubspot.OAuthConfig{ClientID: apps.HubSpot.ClientID, ClientSecret: apps.HubSpot.ClientSecret}
		return hcfg.AuthCodeURL(redirectURI, state), nil
	case p == domain.ProviderNotion:
		ncfg := notion.OAuthConfig{ClientID: apps.Notion.ClientID, ClientSecret: apps.Notion.ClientSecret}
		return ncfg.AuthCodeURL(redirectURI, state), nil
	case OAuthProvider(p):
		gcfg := google.OAuthConfig{ClientID: apps.Google.ClientID, ClientSecret: apps.Google.ClientSecret}
		return gcfg.AuthCodeURL(redirectURI, state, google.ScopesFor(p)), nil
	default:
		return "", fmt.Errorf("%w: %q does not use the oauth flow", domain.ErrInvalidInput, p)
	}
}

// Exchange trades an authorization code for credentials.
func Exchange(ctx context.Context, apps providers.OAuthApps, p domain.Provider, code, redirectURI string) (*domain.Credentials, error) {
	switch {
	case p == domain.ProviderHubSpot:
		hcfg := hubspot.OAuthConfig{ClientID: apps.HubSpot.ClientID, ClientSecret: apps.HubSpot.ClientSecret}
		return providers.ExchangeCode(ctx, providers.NewHTTPClient(), hcfg.Endpoint(), code, redirectURI)
	case p == domain.ProviderNotion:
		ncfg := notion.OAuthConfig{ClientID: apps.Notion.ClientID, ClientSecret: apps.Notion.ClientSecret}
		return ncfg.Exchange(ctx, providers.NewHTTPClient(), code, redirectURI)
	case OAuthProvider(p):
		gcfg := google.OAuthConfig{ClientID: apps.Google.ClientID, ClientSecret: apps.Google.ClientSecret}
		creds, err := providers.ExchangeCode(ctx, providers.NewHTTPClient(), gcfg.Endpoint(), code, redirectURI)
		if err != nil {
			return nil, err
		}
		if len(creds.Scopes) == 0 {
			creds.Scopes = google.ScopesFor(p)
		}
		return creds, nil
	default:
		return nil, fmt.Errorf("%w: %q does not use the oauth flow", domain.ErrInvalidInput, p)
	}
}
