package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/secrets"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven/mocks"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

type dispatchFixture struct {
	integrations *mocks.MockIntegrationStore
	cipher       driven.CredentialCipher
	service      driving.WebhookDispatcher
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	cipher, err := secrets.New("test-secret")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	f := &dispatchFixture{
		integrations: mocks.NewMockIntegrationStore(),
		cipher:       cipher,
	}
	f.service = NewDispatchService(f.integrations, cipher, nil)
	return f
}

func (f *dispatchFixture) addDestination(t *testing.T, id, url string, filter *domain.WebhookFilter) {
	t.Helper()
	encrypted, err := f.cipher.Encrypt(&domain.Credentials{
		SigningSecret: "whsec_" + id,
		Filter:        filter,
	})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	err = f.integrations.Save(context.Background(), &domain.Integration{
		ID:                   id,
		TenantID:             "tenant-1",
		Provider:             domain.ProviderWebhook,
		Type:                 domain.IntegrationTypeWebhook,
		Status:               domain.IntegrationStatusConnected,
		EncryptedCredentials: encrypted,
		WebhookURL:           url,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
}

// countingServer counts deliveries per path.
func countingServer(t *testing.T, fail map[string]bool) (*httptest.Server, func(path string) int) {
	t.Helper()
	var mu sync.Mutex
	counts := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		counts[r.URL.Path]++
		mu.Unlock()
		if fail[r.URL.Path] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return srv, func(path string) int {
		mu.Lock()
		defer mu.Unlock()
		return counts[path]
	}
}

func TestDispatch_FiltersBeforeDelivery(t *testing.T) {
	f := newDispatchFixture(t)
	srv, count := countingServer(t, nil)
	defer srv.Close()

	f.addDestination(t, "dest-completed", srv.URL+"/completed", &domain.WebhookFilter{
		EventTypes: []string{"agent.completed"},
		Status:     domain.StatusFilterAll,
	})
	f.addDestination(t, "dest-failed", srv.URL+"/failed", &domain.WebhookFilter{
		EventTypes: []string{"agent.failed"},
		Status:     domain.StatusFilterAll,
	})
	f.addDestination(t, "dest-nofilter", srv.URL+"/nofilter", nil)

	result, err := f.service.Dispatch(context.Background(), "tenant-1", &domain.WebhookEvent{
		Type: "agent.completed", AgentID: "agent-1", Success: true, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if result.Matched != 1 || result.Delivered != 1 || len(result.Failures) != 0 {
		t.Errorf("result: %+v", result)
	}
	if count("/completed") != 1 {
		t.Errorf("matching destination deliveries: %d", count("/completed"))
	}
	if count("/failed") != 0 || count("/nofilter") != 0 {
		t.Error("non-matching destinations must see no traffic")
	}
}

func TestDispatch_PerDestinationFailureIsolation(t *testing.T) {
	f := newDispatchFixture(t)
	srv, count := countingServer(t, map[string]bool{"/bad": true})
	defer srv.Close()

	filter := &domain.WebhookFilter{
		EventTypes: []string{"agent.completed"},
		Status:     domain.StatusFilterAll,
	}
	f.addDestination(t, "dest-good", srv.URL+"/good", filter)
	f.addDestination(t, "dest-bad", srv.URL+"/bad", filter)

	result, err := f.service.Dispatch(context.Background(), "tenant-1", &domain.WebhookEvent{
		Type: "agent.completed", Success: true, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if result.Matched != 2 || result.Delivered != 1 || len(result.Failures) != 1 {
		t.Errorf("result: %+v", result)
	}
	if count("/good") != 1 {
		t.Error("healthy destination must still be delivered to")
	}
	// One attempt only; no retry.
	if count("/bad") != 1 {
		t.Errorf("failed destination attempts: %d, want 1", count("/bad"))
	}
}

func TestDispatch_StatusDimension(t *testing.T) {
	f := newDispatchFixture(t)
	srv, count := countingServer(t, nil)
	defer srv.Close()

	f.addDestination(t, "dest-failures", srv.URL+"/failures", &domain.WebhookFilter{
		EventTypes: []string{"agent.completed"},
		Status:     domain.StatusFilterFailure,
	})

	result, err := f.service.Dispatch(context.Background(), "tenant-1", &domain.WebhookEvent{
		Type: "agent.completed", Success: true, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Matched != 0 || count("/failures") != 0 {
		t.Error("success event must not match a failure-only destination")
	}

	result, err = f.service.Dispatch(context.Background(), "tenant-1", &domain.WebhookEvent{
		Type: "agent.completed", Success: false, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Delivered != 1 || count("/failures") != 1 {
		t.Error("failure event should reach the failure-only destination")
	}
}

func TestDispatch_NoDestinations(t *testing.T) {
	f := newDispatchFixture(t)

	result, err := f.service.Dispatch(context.Background(), "tenant-1", &domain.WebhookEvent{
		Type: "agent.completed", Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Matched != 0 || result.Delivered != 0 {
		t.Errorf("result: %+v", result)
	}
}

func TestDispatch_OtherProvidersIgnored(t *testing.T) {
	f := newDispatchFixture(t)

	encrypted, _ := f.cipher.Encrypt(&domain.Credentials{APIKey: "re_abc"})
	_ = f.integrations.Save(context.Background(), &domain.Integration{
		ID:                   "int-resend",
		TenantID:             "tenant-1",
		Provider:             domain.ProviderResend,
		Status:               domain.IntegrationStatusConnected,
		EncryptedCredentials: encrypted,
	})

	result, err := f.service.Dispatch(context.Background(), "tenant-1", &domain.WebhookEvent{
		Type: "agent.completed", Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.Matched != 0 {
		t.Errorf("non-webhook integrations must not match: %+v", result)
	}
}

func TestDispatch_EventStampedWithTenant(t *testing.T) {
	f := newDispatchFixture(t)
	srv, _ := countingServer(t, nil)
	defer srv.Close()

	f.addDestination(t, "dest", srv.URL+"/d", &domain.WebhookFilter{
		EventTypes: []string{"agent.completed"},
		Status:     domain.StatusFilterAll,
	})

	event := &domain.WebhookEvent{Type: "agent.completed", Success: true, Timestamp: time.Now()}
	if _, err := f.service.Dispatch(context.Background(), "tenant-1", event); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if event.TenantID != "tenant-1" {
		t.Errorf("tenant not stamped: %q", event.TenantID)
	}
}
