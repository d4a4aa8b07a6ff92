package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/secrets"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven/mocks"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

type oauthFixture struct {
	integrations *mocks.MockIntegrationStore
	states       *mocks.MockOAuthStateStore
	cipher       driven.CredentialCipher
	service      *oauthService
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()

	cipher, err := secrets.New("test-secret")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	f := &oauthFixture{
		integrations: mocks.NewMockIntegrationStore(),
		states:       mocks.NewMockOAuthStateStore(),
		cipher:       cipher,
	}
	svc := NewOAuthService(f.integrations, f.states, cipher, OAuthServiceConfig{
		Apps: providers.OAuthApps{
			Google:  providers.OAuthAppConfig{ClientID: "client-1", ClientSecret: "shh"},
			HubSpot: providers.OAuthAppConfig{ClientID: "hs-client", ClientSecret: "hs-secret"},
			Notion:  providers.OAuthAppConfig{ClientID: "nt-client", ClientSecret: "nt-secret"},
		},
		RedirectURI: "https://app.nexia.app/api/v1/oauth/callback",
	})
	f.service = svc.(*oauthService)

	// Stub the network exchange.
	f.service.exchange = func(ctx context.Context, apps providers.OAuthApps, p domain.Provider, code, redirectURI string) (*domain.Credentials, error) {
		if code != "good-code" {
			return nil, errors.New("invalid_grant")
		}
		expiry := time.Now().Add(time.Hour)
		return &domain.Credentials{
			AccessToken:    "access",
			RefreshToken:   "refresh",
			TokenExpiresAt: &expiry,
		}, nil
	}
	return f
}

func TestAuthorize(t *testing.T) {
	f := newOAuthFixture(t)

	resp, err := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1",
		Provider: domain.ProviderGoogleCalendar,
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	if resp.State == "" || len(resp.State) < 32 {
		t.Errorf("state too short: %q", resp.State)
	}
	if !strings.Contains(resp.AuthorizationURL, "state="+resp.State) {
		t.Error("authorization URL missing the state")
	}
	if !strings.Contains(resp.AuthorizationURL, "access_type=offline") {
		t.Error("authorization URL missing offline access")
	}

	// The state must be stored and single-use.
	stored, err := f.states.GetAndDelete(context.Background(), resp.State)
	if err != nil || stored == nil {
		t.Fatalf("state not stored: %v", err)
	}
	if stored.TenantID != "tenant-1" || stored.Provider != string(domain.ProviderGoogleCalendar) {
		t.Errorf("stored state: %+v", stored)
	}
}

func TestAuthorize_HubSpotAndNotion(t *testing.T) {
	f := newOAuthFixture(t)

	hs, err := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderHubSpot,
	})
	if err != nil {
		t.Fatalf("Authorize hubspot: %v", err)
	}
	if !strings.Contains(hs.AuthorizationURL, "app.hubspot.com/oauth/authorize") {
		t.Errorf("hubspot consent URL: %q", hs.AuthorizationURL)
	}
	if !strings.Contains(hs.AuthorizationURL, "client_id=hs-client") {
		t.Errorf("hubspot app not used: %q", hs.AuthorizationURL)
	}

	nt, err := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderNotion,
	})
	if err != nil {
		t.Fatalf("Authorize notion: %v", err)
	}
	if !strings.Contains(nt.AuthorizationURL, "api.notion.com/v1/oauth/authorize") {
		t.Errorf("notion consent URL: %q", nt.AuthorizationURL)
	}
	if !strings.Contains(nt.AuthorizationURL, "owner=user") {
		t.Errorf("notion consent URL missing owner: %q", nt.AuthorizationURL)
	}
}

func TestAuthorize_StatesAreUnique(t *testing.T) {
	f := newOAuthFixture(t)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		resp, err := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
			TenantID: "tenant-1", Provider: domain.ProviderGmail,
		})
		if err != nil {
			t.Fatalf("Authorize: %v", err)
		}
		if seen[resp.State] {
			t.Fatal("duplicate state generated")
		}
		seen[resp.State] = true
	}
}

func TestAuthorize_NonOAuthProvider(t *testing.T) {
	f := newOAuthFixture(t)

	_, err := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderStripe,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCallback(t *testing.T) {
	f := newOAuthFixture(t)

	auth, err := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderGmail,
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	resp, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: auth.State, Code: "good-code",
	})
	if err != nil {
		t.Fatalf("Callback: %v", err)
	}

	if resp.Integration.Provider != domain.ProviderGmail || resp.Integration.Status != domain.IntegrationStatusConnected {
		t.Errorf("integration: %+v", resp.Integration)
	}

	record, err := f.integrations.Get(context.Background(), resp.Integration.ID)
	if err != nil {
		t.Fatalf("record not saved: %v", err)
	}
	if !f.cipher.IsEncrypted(record.EncryptedCredentials) {
		t.Error("tokens stored unencrypted")
	}
	creds, _ := f.cipher.Decrypt(record.EncryptedCredentials)
	if creds.AccessToken != "access" || creds.RefreshToken != "refresh" {
		t.Errorf("tokens: %+v", creds)
	}
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	f := newOAuthFixture(t)

	auth, _ := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderGmail,
	})

	if _, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: auth.State, Code: "good-code",
	}); err != nil {
		t.Fatalf("first Callback: %v", err)
	}

	_, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: auth.State, Code: "good-code",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("replayed state should be rejected, got %v", err)
	}
}

func TestCallback_UnknownState(t *testing.T) {
	f := newOAuthFixture(t)

	_, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: "forged", Code: "good-code",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCallback_ProviderError(t *testing.T) {
	f := newOAuthFixture(t)

	auth, _ := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderGmail,
	})

	_, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: auth.State, Error: "access_denied", ErrorDescription: "user declined",
	})

	var oauthErr *driving.OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("expected OAuthError, got %v", err)
	}
	if oauthErr.Code != "access_denied" {
		t.Errorf("code: got %q", oauthErr.Code)
	}

	// The state was consumed even on denial.
	stored, _ := f.states.GetAndDelete(context.Background(), auth.State)
	if stored != nil {
		t.Error("state should be consumed on provider error")
	}
}

func TestCallback_ExchangeFailure(t *testing.T) {
	f := newOAuthFixture(t)

	auth, _ := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderGmail,
	})

	if _, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: auth.State, Code: "bad-code",
	}); err == nil {
		t.Fatal("expected exchange failure to surface")
	}

	records, _ := f.integrations.List(context.Background(), "tenant-1")
	if len(records) != 0 {
		t.Error("failed exchange must not persist a record")
	}
}

func TestCallback_DemotesPriorRow(t *testing.T) {
	f := newOAuthFixture(t)

	first, _ := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderGmail,
	})
	firstResp, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: first.State, Code: "good-code",
	})
	if err != nil {
		t.Fatalf("first Callback: %v", err)
	}

	second, _ := f.service.Authorize(context.Background(), driving.AuthorizeRequest{
		TenantID: "tenant-1", Provider: domain.ProviderGmail,
	})
	if _, err := f.service.Callback(context.Background(), driving.CallbackRequest{
		State: second.State, Code: "good-code",
	}); err != nil {
		t.Fatalf("second Callback: %v", err)
	}

	prior, _ := f.integrations.Get(context.Background(), firstResp.Integration.ID)
	if prior.Status != domain.IntegrationStatusDisconnected {
		t.Errorf("prior row status: %s", prior.Status)
	}
}
