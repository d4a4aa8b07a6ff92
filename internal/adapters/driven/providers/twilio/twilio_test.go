package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven/mocks"
)

func newTestAdapter(t *testing.T, baseURL string, plan domain.Plan, usage *mocks.MockUsageStore) *Adapter {
	t.Helper()
	a := New(
		&domain.Integration{TenantID: "tenant-1", Provider: domain.ProviderTwilio},
		&domain.Credentials{AccountSID: "AC123", AuthToken: "token", FromNumber: "+15550001111"},
		Config{},
		providers.NewUsageGate(usage, plan, "tenant-1", nil),
	)
	a.baseURL = baseURL
	return a
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		creds   *domain.Credentials
		cfg     Config
		wantErr bool
	}{
		{"complete", &domain.Credentials{AccountSID: "AC1", AuthToken: "t", FromNumber: "+1555"}, Config{}, false},
		{"missing token", &domain.Credentials{AccountSID: "AC1", FromNumber: "+1555"}, Config{}, true},
		{"missing from", &domain.Credentials{AccountSID: "AC1", AuthToken: "t"}, Config{}, true},
		{"platform tier configured", &domain.Credentials{}, Config{PlatformAccountSID: "ACP", PlatformAuthToken: "pt", PlatformFrom: "+1999"}, false},
		{"platform tier unconfigured", &domain.Credentials{}, Config{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(&domain.Integration{TenantID: "tenant-1"}, tt.creds, tt.cfg, nil)
			err := a.Authenticate(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Authenticate: err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthenticate_PlatformTierUnconfiguredMessage(t *testing.T) {
	a := New(&domain.Integration{TenantID: "tenant-1"}, &domain.Credentials{}, Config{}, nil)
	err := a.Authenticate(context.Background())
	if err == nil || !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := err.Error(); got != "invalid credentials: platform sms tier is not configured" {
		t.Errorf("wrong message for an unconfigured platform tier: %q", got)
	}
}

func TestSendSMS_PlatformTier(t *testing.T) {
	var gotPath, gotAuthUser, gotAuthPass string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotForm = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM2", "status": "queued"})
	}))
	defer srv.Close()

	usage := mocks.NewMockUsageStore()
	a := New(
		&domain.Integration{TenantID: "tenant-1", Provider: domain.ProviderTwilio},
		&domain.Credentials{},
		Config{PlatformAccountSID: "ACPLAT", PlatformAuthToken: "plat-token", PlatformFrom: "+15551230000"},
		providers.NewUsageGate(usage, domain.PlanStarter, "tenant-1", nil),
	)
	a.baseURL = srv.URL

	if _, err := a.ExecuteAction(context.Background(), "send_sms", map[string]any{
		"to": "+15559998888", "body": "hi",
	}); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	if gotPath != "/Accounts/ACPLAT/Messages.json" {
		t.Errorf("platform account not used in path: got %s", gotPath)
	}
	if gotAuthUser != "ACPLAT" || gotAuthPass != "plat-token" {
		t.Errorf("platform basic auth: got %s:%s", gotAuthUser, gotAuthPass)
	}
	if gotForm.Get("From") != "+15551230000" {
		t.Errorf("platform from number not used: got %v", gotForm.Get("From"))
	}

	count, _ := usage.MonthlyCount(context.Background(), "tenant-1", domain.UsageMetricSMSSent)
	if count != 1 {
		t.Errorf("usage not recorded: count = %d", count)
	}
}

func TestSendSMS(t *testing.T) {
	var gotPath, gotAuthUser, gotAuthPass string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotForm = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM1", "status": "queued"})
	}))
	defer srv.Close()

	usage := mocks.NewMockUsageStore()
	a := newTestAdapter(t, srv.URL, domain.PlanStarter, usage)

	result, err := a.ExecuteAction(context.Background(), "send_sms", map[string]any{
		"to": "+15559998888", "body": "your table is ready",
	})
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	if gotPath != "/Accounts/AC123/Messages.json" {
		t.Errorf("path: got %s", gotPath)
	}
	if gotAuthUser != "AC123" || gotAuthPass != "token" {
		t.Errorf("basic auth: got %s:%s", gotAuthUser, gotAuthPass)
	}
	if gotForm.Get("To") != "+15559998888" || gotForm.Get("From") != "+15550001111" || gotForm.Get("Body") != "your table is ready" {
		t.Errorf("form: got %v", gotForm)
	}

	out := result.(map[string]any)
	if out["sid"] != "SM1" {
		t.Errorf("result sid: got %v", out["sid"])
	}

	count, _ := usage.MonthlyCount(context.Background(), "tenant-1", domain.UsageMetricSMSSent)
	if count != 1 {
		t.Errorf("usage not recorded: count = %d", count)
	}
}

func TestSendSMS_LimitExceeded(t *testing.T) {
	var providerCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerCalled = true
	}))
	defer srv.Close()

	usage := mocks.NewMockUsageStore()
	usage.Seed("tenant-1", domain.UsageMetricSMSSent, domain.PlanFree.SMSMonthly)

	a := newTestAdapter(t, srv.URL, domain.PlanFree, usage)

	_, err := a.ExecuteAction(context.Background(), "send_sms", map[string]any{
		"to": "+15559998888", "body": "hi",
	})
	if !errors.Is(err, domain.ErrUsageLimitExceeded) {
		t.Fatalf("expected ErrUsageLimitExceeded, got %v", err)
	}
	if providerCalled {
		t.Error("provider must not be called once the limit is reached")
	}
}

func TestSendSMS_CounterReadFailureBlocksSend(t *testing.T) {
	var providerCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerCalled = true
	}))
	defer srv.Close()

	usage := mocks.NewMockUsageStore()
	usage.CountErr = errors.New("store down")

	a := newTestAdapter(t, srv.URL, domain.PlanFree, usage)

	if _, err := a.ExecuteAction(context.Background(), "send_sms", map[string]any{
		"to": "+15559998888", "body": "hi",
	}); err == nil {
		t.Fatal("expected error when the counter cannot be read")
	}
	if providerCalled {
		t.Error("send must fail closed on counter errors")
	}
}

func TestTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "active", "friendly_name": "Acme"})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, domain.PlanFree, mocks.NewMockUsageStore())

	result, err := a.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got %q", result.Message)
	}
}

func TestHandleWebhook(t *testing.T) {
	a := newTestAdapter(t, "http://unused", domain.PlanFree, mocks.NewMockUsageStore())

	payload := url.Values{
		"MessageSid": {"SM99"},
		"From":       {"+15557770000"},
		"To":         {"+15550001111"},
		"Body":       {"STOP"},
	}

	msg, err := a.HandleWebhook(context.Background(), []byte(payload.Encode()))
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	if msg.Provider != domain.ProviderTwilio || msg.Kind != "sms" {
		t.Errorf("wrong envelope: %+v", msg)
	}
	if msg.From != "+15557770000" || msg.To != "+15550001111" || msg.Body != "STOP" {
		t.Errorf("fields not mapped: %+v", msg)
	}
}

func TestHandleWebhook_Empty(t *testing.T) {
	a := newTestAdapter(t, "http://unused", domain.PlanFree, mocks.NewMockUsageStore())

	if _, err := a.HandleWebhook(context.Background(), []byte("")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
