package notion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

func newTestAdapter(baseURL string, config map[string]string) *Adapter {
	a := New(
		&domain.Integration{TenantID: "tenant-1", Config: config},
		&domain.Credentials{APIKey: "secret_abc"},
	)
	a.baseURL = baseURL
	return a
}

func TestHeaders(t *testing.T) {
	var gotAuth, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "Nexia Bot"})
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL, nil)
	result, err := a.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}

	if gotAuth != "Bearer secret_abc" {
		t.Errorf("auth: got %q", gotAuth)
	}
	if gotVersion != apiVersion {
		t.Errorf("Notion-Version: got %q, want %q", gotVersion, apiVersion)
	}
	if !result.Success {
		t.Errorf("expected success, got %q", result.Message)
	}
}

func TestCreatePage(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "page-1", "url": "https://notion.so/page-1"})
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL, nil)
	result, err := a.ExecuteAction(context.Background(), "create_page", map[string]any{
		"title": "Meeting notes", "parent_id": "parent-1", "content": "Agenda",
	})
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	parent := gotBody["parent"].(map[string]any)
	if parent["page_id"] != "parent-1" {
		t.Errorf("parent: %v", parent)
	}
	if _, ok := gotBody["children"]; !ok {
		t.Error("content not included as children blocks")
	}
	if result.(page).ID != "page-1" {
		t.Errorf("result: %+v", result)
	}
}

func TestCreatePage_DatabaseParent(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "page-2"})
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL, nil)
	if _, err := a.ExecuteAction(context.Background(), "create_page", map[string]any{
		"title": "Lead: Acme", "parent_id": "db-1", "parent_type": "database",
	}); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	parent := gotBody["parent"].(map[string]any)
	if parent["database_id"] != "db-1" {
		t.Errorf("parent: %v", parent)
	}
}

func TestQueryDatabase_ConfigFallback(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"results":[{"id":"row-1"}]}`))
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL, map[string]string{"database_id": "db-default"})
	result, err := a.ExecuteAction(context.Background(), "query_database", map[string]any{})
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	if gotPath != "/databases/db-default/query" {
		t.Errorf("path: got %s", gotPath)
	}
	rows := result.([]map[string]any)
	if len(rows) != 1 {
		t.Errorf("rows: %v", rows)
	}
}

func TestQueryDatabase_NoDatabase(t *testing.T) {
	a := newTestAdapter("http://unused", nil)

	_, err := a.ExecuteAction(context.Background(), "query_database", map[string]any{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAppendBlocks(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL, nil)
	if _, err := a.ExecuteAction(context.Background(), "append_blocks", map[string]any{
		"block_id": "page-1", "text": "follow-up tomorrow",
	}); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}

	if gotMethod != "PATCH" || gotPath != "/blocks/page-1/children" {
		t.Errorf("request: %s %s", gotMethod, gotPath)
	}
	children := gotBody["children"].([]any)
	block := children[0].(map[string]any)
	if block["type"] != "paragraph" {
		t.Errorf("block: %v", block)
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		if body["query"] != "roadmap" {
			t.Errorf("query: %v", body["query"])
		}
		_, _ = w.Write([]byte(`{"results":[{"id":"page-9"}]}`))
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL, nil)
	result, err := a.ExecuteAction(context.Background(), "search", map[string]any{"query": "roadmap"})
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if len(result.([]map[string]any)) != 1 {
		t.Errorf("results: %v", result)
	}
}

func TestAuthenticate_EmptySecret(t *testing.T) {
	a := New(&domain.Integration{}, &domain.Credentials{})

	if err := a.Authenticate(context.Background()); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestOAuthConnection_UsesAccessToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "Nexia Bot"})
	}))
	defer srv.Close()

	a := New(&domain.Integration{TenantID: "tenant-1"}, &domain.Credentials{AccessToken: "oauth-access"})
	a.baseURL = srv.URL

	result, err := a.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got %q", result.Message)
	}
	if gotAuth != "Bearer oauth-access" {
		t.Errorf("workspace token not sent: got %q", gotAuth)
	}
}

func TestAuthCodeURL(t *testing.T) {
	cfg := OAuthConfig{ClientID: "nt-client"}

	u := cfg.AuthCodeURL("https://app.nexia.app/cb", "state-1")
	for _, want := range []string{
		"api.notion.com/v1/oauth/authorize", "client_id=nt-client",
		"state=state-1", "owner=user", "response_type=code",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("url missing %q: %s", want, u)
		}
	}
	if strings.Contains(u, "scope=") {
		t.Errorf("notion consent URL should carry no scope: %s", u)
	}
}

func exchangeAgainst(t *testing.T, cfg OAuthConfig, endpoint, code, redirectURI string) (*domain.Credentials, error) {
	t.Helper()
	old := tokenURL
	tokenURL = endpoint
	t.Cleanup(func() { tokenURL = old })
	return cfg.Exchange(context.Background(), http.DefaultClient, code, redirectURI)
}

func TestExchange(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "ws-token", "workspace_name": "Acme",
		})
	}))
	defer srv.Close()

	cfg := OAuthConfig{ClientID: "nt-client", ClientSecret: "nt-secret"}
	creds, err := exchangeAgainst(t, cfg, srv.URL, "code-1", "https://app.nexia.app/cb")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	wantBasic := "Basic " + base64.StdEncoding.EncodeToString([]byte("nt-client:nt-secret"))
	if gotAuth != wantBasic {
		t.Errorf("basic auth: got %q, want %q", gotAuth, wantBasic)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type: got %q", gotContentType)
	}
	if gotBody["grant_type"] != "authorization_code" || gotBody["code"] != "code-1" {
		t.Errorf("body: %v", gotBody)
	}
	if creds.AccessToken != "ws-token" || creds.RefreshToken != "" {
		t.Errorf("credentials: %+v", creds)
	}
}

func TestExchange_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	cfg := OAuthConfig{ClientID: "nt-client", ClientSecret: "nt-secret"}
	if _, err := exchangeAgainst(t, cfg, srv.URL, "bad-code", "https://app.nexia.app/cb"); err == nil {
		t.Fatal("expected exchange failure")
	}
}

func TestUnknownAction(t *testing.T) {
	a := newTestAdapter("http://unused", nil)

	_, err := a.ExecuteAction(context.Background(), "delete_workspace", nil)
	if !errors.Is(err, domain.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}
