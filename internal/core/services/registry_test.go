package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/catalog"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/secrets"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven/mocks"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

type registryFixture struct {
	integrations *mocks.MockIntegrationStore
	agents       *mocks.MockAgentStore
	tenants      *mocks.MockTenantStore
	cipher       driven.CredentialCipher
	service      driving.RegistryService
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()

	cipher, err := secrets.New("test-secret")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	f := &registryFixture{
		integrations: mocks.NewMockIntegrationStore(),
		agents:       mocks.NewMockAgentStore(),
		tenants:      mocks.NewMockTenantStore(),
		cipher:       cipher,
	}
	factory := catalog.New(providers.FactoryConfig{
		Usage: mocks.NewMockUsageStore(),
		Email: providers.PlatformEmailConfig{APIKey: "re_platform", From: "agents@nexia.app"},
	})
	f.service = NewRegistryService(f.integrations, f.agents, f.tenants, cipher, factory, nil)
	return f
}

func (f *registryFixture) addIntegration(t *testing.T, id string, provider domain.Provider, creds *domain.Credentials) {
	t.Helper()
	encrypted, err := f.cipher.Encrypt(creds)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	err = f.integrations.Save(context.Background(), &domain.Integration{
		ID:                   id,
		TenantID:             "tenant-1",
		Provider:             provider,
		Type:                 domain.TypeForProvider(provider),
		Status:               domain.IntegrationStatusConnected,
		EncryptedCredentials: encrypted,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestGetIntegrationMap(t *testing.T) {
	f := newRegistryFixture(t)
	f.addIntegration(t, "int-1", domain.ProviderResend, &domain.Credentials{APIKey: "re_abc"})
	f.addIntegration(t, "int-2", domain.ProviderStripe, &domain.Credentials{APIKey: "sk_test_1"})

	m, err := f.service.GetIntegrationMap(context.Background(), "tenant-1", "")
	if err != nil {
		t.Fatalf("GetIntegrationMap: %v", err)
	}

	if len(m) != 2 {
		t.Fatalf("map size: got %d, want 2", len(m))
	}
	if m[domain.ProviderResend].Provider() != domain.ProviderResend {
		t.Error("resend adapter missing or wrong")
	}
	if m[domain.ProviderStripe].Provider() != domain.ProviderStripe {
		t.Error("stripe adapter missing or wrong")
	}
}

func TestGetIntegrationMap_PartialFailureIsolation(t *testing.T) {
	f := newRegistryFixture(t)
	f.addIntegration(t, "int-good", domain.ProviderResend, &domain.Credentials{APIKey: "re_abc"})

	// A record whose ciphertext no longer decrypts.
	_ = f.integrations.Save(context.Background(), &domain.Integration{
		ID:                   "int-bad",
		TenantID:             "tenant-1",
		Provider:             domain.ProviderStripe,
		Status:               domain.IntegrationStatusConnected,
		EncryptedCredentials: `{"salt":"00","iv":"00","authTag":"00","encrypted":"00"}`,
	})

	m, err := f.service.GetIntegrationMap(context.Background(), "tenant-1", "")
	if err != nil {
		t.Fatalf("GetIntegrationMap must not fail on one bad record: %v", err)
	}

	if _, ok := m[domain.ProviderResend]; !ok {
		t.Error("healthy integration lost to a neighbor's failure")
	}
	if _, ok := m[domain.ProviderStripe]; ok {
		t.Error("undecryptable record should be skipped")
	}
}

func TestGetIntegrationMap_UnknownProviderSkipped(t *testing.T) {
	f := newRegistryFixture(t)
	f.addIntegration(t, "int-1", domain.ProviderResend, &domain.Credentials{APIKey: "re_abc"})
	f.addIntegration(t, "int-2", "salesforce", &domain.Credentials{APIKey: "x"})

	m, err := f.service.GetIntegrationMap(context.Background(), "tenant-1", "")
	if err != nil {
		t.Fatalf("GetIntegrationMap: %v", err)
	}
	if len(m) != 1 {
		t.Errorf("map size: got %d, want 1 (unknown provider skipped)", len(m))
	}
}

func TestGetIntegrationMap_AgentAllowList(t *testing.T) {
	f := newRegistryFixture(t)
	f.addIntegration(t, "int-resend", domain.ProviderResend, &domain.Credentials{APIKey: "re_abc"})
	f.addIntegration(t, "int-stripe", domain.ProviderStripe, &domain.Credentials{APIKey: "sk_test_1"})

	allowResend := []string{"int-resend"}
	allowNone := []string{}
	agents := []*domain.Agent{
		{ID: "agent-all", TenantID: "tenant-1"},
		{ID: "agent-some", TenantID: "tenant-1", IntegrationIDs: &allowResend},
		{ID: "agent-none", TenantID: "tenant-1", IntegrationIDs: &allowNone},
	}
	for _, a := range agents {
		_ = f.agents.Save(context.Background(), a)
	}

	tests := []struct {
		agentID string
		want    int
	}{
		{"agent-all", 2},
		{"agent-some", 1},
		{"agent-none", 0},
	}

	for _, tt := range tests {
		t.Run(tt.agentID, func(t *testing.T) {
			m, err := f.service.GetIntegrationMap(context.Background(), "tenant-1", tt.agentID)
			if err != nil {
				t.Fatalf("GetIntegrationMap: %v", err)
			}
			if len(m) != tt.want {
				t.Errorf("map size: got %d, want %d", len(m), tt.want)
			}
		})
	}
}

func TestGetIntegrationMap_AgentFromOtherTenant(t *testing.T) {
	f := newRegistryFixture(t)
	_ = f.agents.Save(context.Background(), &domain.Agent{ID: "agent-x", TenantID: "tenant-2"})

	_, err := f.service.GetIntegrationMap(context.Background(), "tenant-1", "agent-x")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestGetIntegrationMap_UnknownAgent(t *testing.T) {
	f := newRegistryFixture(t)

	_, err := f.service.GetIntegrationMap(context.Background(), "tenant-1", "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetIntegrationByProvider(t *testing.T) {
	f := newRegistryFixture(t)
	f.addIntegration(t, "int-1", domain.ProviderNotion, &domain.Credentials{APIKey: "secret_1"})

	adapter, err := f.service.GetIntegrationByProvider(context.Background(), domain.ProviderNotion, "tenant-1")
	if err != nil {
		t.Fatalf("GetIntegrationByProvider: %v", err)
	}
	if adapter.Provider() != domain.ProviderNotion {
		t.Errorf("provider: got %s", adapter.Provider())
	}
}

func TestGetIntegrationByProvider_NotConnected(t *testing.T) {
	f := newRegistryFixture(t)

	_, err := f.service.GetIntegrationByProvider(context.Background(), domain.ProviderNotion, "tenant-1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetIntegrationByProvider_DecryptFailureSurfaces(t *testing.T) {
	f := newRegistryFixture(t)
	_ = f.integrations.Save(context.Background(), &domain.Integration{
		ID:                   "int-bad",
		TenantID:             "tenant-1",
		Provider:             domain.ProviderNotion,
		Status:               domain.IntegrationStatusConnected,
		EncryptedCredentials: `{"salt":"00","iv":"00","authTag":"00","encrypted":"00"}`,
	})

	_, err := f.service.GetIntegrationByProvider(context.Background(), domain.ProviderNotion, "tenant-1")
	if !errors.Is(err, domain.ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

// stubRefreshable records the persist callback the registry installs.
type stubRefreshable struct {
	driven.Adapter
	persist driven.TokenPersister
}

func (s *stubRefreshable) OnRefresh(p driven.TokenPersister) { s.persist = p }

func TestRegistry_InstallsPersistCallback(t *testing.T) {
	f := newRegistryFixture(t)
	f.addIntegration(t, "int-gmail", domain.ProviderGmail, &domain.Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
	})

	cipher, _ := secrets.New("test-secret")
	factory := catalog.New(providers.FactoryConfig{Usage: mocks.NewMockUsageStore()})
	stub := &stubRefreshable{}
	factory.Register(domain.ProviderGmail, func(i *domain.Integration, c *domain.Credentials, deps providers.BuildDeps) driven.Adapter {
		return stub
	})
	service := NewRegistryService(f.integrations, f.agents, f.tenants, cipher, factory, nil)

	if _, err := service.GetIntegrationByProvider(context.Background(), domain.ProviderGmail, "tenant-1"); err != nil {
		t.Fatalf("GetIntegrationByProvider: %v", err)
	}
	if stub.persist == nil {
		t.Fatal("registry did not install the persist callback")
	}

	// Driving the callback must land an encrypted payload on the record.
	if err := stub.persist(context.Background(), &domain.Credentials{AccessToken: "rotated"}); err != nil {
		t.Fatalf("persist: %v", err)
	}

	record, _ := f.integrations.Get(context.Background(), "int-gmail")
	if !cipher.IsEncrypted(record.EncryptedCredentials) {
		t.Error("persisted credentials are not encrypted")
	}
	got, err := cipher.Decrypt(record.EncryptedCredentials)
	if err != nil {
		t.Fatalf("decrypt persisted: %v", err)
	}
	if got.AccessToken != "rotated" {
		t.Errorf("persisted token: got %q", got.AccessToken)
	}
}
