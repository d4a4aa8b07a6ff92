// Package notion implements the Notion workspace adapter. Tenants
// connect through the public OAuth flow, which grants the agent the
// pages the workspace admin shares; an internal integration secret
// still works for single-workspace setups.
package notion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const (
	apiBase      = "https://api.notion.com/v1"
	authorizeURL = "https://api.notion.com/v1/oauth/authorize"

	// apiVersion is pinned; Notion breaks payload shapes across versions.
	apiVersion = "2022-06-28"
)

// tokenURL is a var so tests can point the exchange at a stub server.
var tokenURL = "https://api.notion.com/v1/oauth/token"

var _ driven.Adapter = (*Adapter)(nil)

// OAuthConfig is the platform's Notion public integration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
}

// AuthCodeURL builds the Notion consent URL. Notion has no scope
// parameter; access is whatever the user shares on the consent screen.
func (c OAuthConfig) AuthCodeURL(redirectURI, state string) string {
	return providers.BuildAuthCodeURL(authorizeURL, c.ClientID, redirectURI, state, nil, url.Values{
		"owner": {"user"},
	})
}

// Exchange trades an authorization code for a workspace token. Notion's
// token endpoint wants HTTP basic auth with the app credentials and a
// JSON body, unlike the form-encoded default, and its tokens never
// expire, so there is no refresh token to store.
func (c OAuthConfig) Exchange(ctx context.Context, client *http.Client, code, redirectURI string) (*domain.Credentials, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": redirectURI,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded struct {
		AccessToken   string `json:"access_token"`
		WorkspaceName string `json:"workspace_name"`
		Error         string `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("oauth error: %s", decoded.Error)
	}

	return &domain.Credentials{AccessToken: decoded.AccessToken}, nil
}

type Adapter struct {
	token      string
	databaseID string
	client     *http.Client

	baseURL string
}

// New builds a Notion adapter. OAuth-connected records carry the
// workspace token; internal integrations carry a static secret. The
// integration's config may pin a database_id used when query_database
// omits one.
func New(integration *domain.Integration, creds *domain.Credentials) *Adapter {
	token := creds.AccessToken
	if token == "" {
		token = creds.APIKey
	}
	return &Adapter{
		token:      token,
		databaseID: integration.Config["database_id"],
		client:     providers.NewHTTPClient(),
		baseURL:    apiBase,
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderNotion
}

func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.token == "" {
		return fmt.Errorf("%w: notion requires an oauth connection or an integration secret", domain.ErrInvalidCredentials)
	}
	return nil
}

func (a *Adapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	if err := a.Authenticate(ctx); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	var me struct {
		Name string `json:"name"`
	}
	err := providers.DoJSON(ctx, a.client, providers.Request{
		Method:  "GET",
		URL:     a.baseURL + "/users/me",
		Headers: a.headers(),
	}, &me)
	if err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.TestResult{Success: true, Message: "connected as " + me.Name}, nil
}

func (a *Adapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "create_page":
		return a.createPage(ctx, params)
	case "search":
		return a.search(ctx, params)
	case "query_database":
		return a.queryDatabase(ctx, params)
	case "append_blocks":
		return a.appendBlocks(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

type page struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (a *Adapter) createPage(ctx context.Context, params map[string]any) (any, error) {
	title, err := providers.StringParam(params, "title")
	if err != nil {
		return nil, err
	}
	parentID, err := providers.StringParam(params, "parent_id")
	if err != nil {
		return nil, err
	}

	parentKey := "page_id"
	titleProp := "title"
	if providers.OptionalStringParam(params, "parent_type") == "database" {
		parentKey = "database_id"
		titleProp = "Name"
	}

	body := map[string]any{
		"parent": map[string]string{parentKey: parentID},
		"properties": map[string]any{
			titleProp: map[string]any{
				"title": []map[string]any{{
					"text": map[string]string{"content": title},
				}},
			},
		},
	}
	if content := providers.OptionalStringParam(params, "content"); content != "" {
		body["children"] = []map[string]any{paragraphBlock(content)}
	}

	var created page
	err = providers.DoJSON(ctx, a.client, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/pages",
		Headers:  a.headers(),
		JSONBody: body,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return created, nil
}

func (a *Adapter) search(ctx context.Context, params map[string]any) (any, error) {
	query, err := providers.StringParam(params, "query")
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []map[string]any `json:"results"`
	}
	err = providers.DoJSON(ctx, a.client, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/search",
		Headers:  a.headers(),
		JSONBody: map[string]any{"query": query, "page_size": 25},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return result.Results, nil
}

func (a *Adapter) queryDatabase(ctx context.Context, params map[string]any) (any, error) {
	databaseID := providers.OptionalStringParam(params, "database_id")
	if databaseID == "" {
		databaseID = a.databaseID
	}
	if databaseID == "" {
		return nil, fmt.Errorf("%w: no database_id in params or integration config", domain.ErrInvalidInput)
	}

	body := map[string]any{"page_size": 50}
	if filter, ok := params["filter"].(map[string]any); ok {
		body["filter"] = filter
	}

	var result struct {
		Results []map[string]any `json:"results"`
	}
	err := providers.DoJSON(ctx, a.client, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/databases/" + url.PathEscape(databaseID) + "/query",
		Headers:  a.headers(),
		JSONBody: body,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("query database: %w", err)
	}
	return result.Results, nil
}

func (a *Adapter) appendBlocks(ctx context.Context, params map[string]any) (any, error) {
	blockID, err := providers.StringParam(params, "block_id")
	if err != nil {
		return nil, err
	}
	text, err := providers.StringParam(params, "text")
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"children": []map[string]any{paragraphBlock(text)},
	}
	err = providers.DoJSON(ctx, a.client, providers.Request{
		Method:   "PATCH",
		URL:      a.baseURL + "/blocks/" + url.PathEscape(blockID) + "/children",
		Headers:  a.headers(),
		JSONBody: body,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("append blocks: %w", err)
	}
	return map[string]any{"block_id": blockID, "appended": true}, nil
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{{
				"type": "text",
				"text": map[string]string{"content": text},
			}},
		},
	}
}

func (a *Adapter) Capabilities() []string {
	return []string{"create_page", "search", "query_database", "append_blocks"}
}

func (a *Adapter) ConfigSchema() driven.ConfigSchema {
	return driven.ConfigSchema{
		Auth:    driven.AuthKindOAuth,
		AuthURL: "/api/v1/oauth/authorize?provider=" + string(domain.ProviderNotion),
		Fields: []driven.ConfigField{
			{Name: "api_key", Label: "Integration secret (instead of OAuth)", Secret: true, Placeholder: "secret_..."},
			{Name: "database_id", Label: "Default database ID"},
		},
	}
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"Authorization":  "Bearer " + a.token,
		"Notion-Version": apiVersion,
	}
}
