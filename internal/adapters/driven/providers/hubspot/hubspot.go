// Package hubspot implements the HubSpot CRM adapter over the v3
// objects API. Tenants connect through the OAuth redirect flow; a
// private app access token still works for workspaces that prefer it.
package hubspot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const (
	apiBase      = "https://api.hubapi.com"
	authorizeURL = "https://app.hubspot.com/oauth/authorize"
	tokenURL     = "https://api.hubapi.com/oauth/v1/token"
)

// Scopes are requested on every connect; HubSpot rejects the consent
// screen when a listed scope is missing from the app configuration.
var Scopes = []string{
	"crm.objects.contacts.read",
	"crm.objects.contacts.write",
	"crm.objects.deals.read",
	"crm.objects.deals.write",
}

var _ driven.Adapter = (*Adapter)(nil)
var _ providers.Refreshable = (*Adapter)(nil)

// OAuthConfig is the platform's HubSpot OAuth app.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
}

// Endpoint returns the token endpoint bound to the app credentials.
func (c OAuthConfig) Endpoint() providers.TokenEndpoint {
	return providers.TokenEndpoint{
		URL:          tokenURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

// AuthCodeURL builds the HubSpot consent URL.
func (c OAuthConfig) AuthCodeURL(redirectURI, state string) string {
	return providers.BuildAuthCodeURL(authorizeURL, c.ClientID, redirectURI, state, Scopes, nil)
}

type Adapter struct {
	token  string
	tokens *providers.TokenManager
	client *http.Client

	baseURL string
}

// New builds a HubSpot adapter. OAuth-connected records get a token
// manager that keeps the access token fresh; records carrying a private
// app token use it as-is.
func New(creds *domain.Credentials, cfg OAuthConfig) *Adapter {
	a := &Adapter{
		client:  providers.NewHTTPClient(),
		baseURL: apiBase,
	}
	if creds.HasOAuthToken() || creds.RefreshToken != "" {
		a.tokens = providers.NewTokenManager(creds, cfg.Endpoint())
	} else {
		a.token = creds.APIKey
	}
	return a
}

// OnRefresh forwards the persist callback to the token manager. Static
// token records have nothing to refresh.
func (a *Adapter) OnRefresh(persist driven.TokenPersister) {
	if a.tokens != nil {
		a.tokens.OnRefresh(persist)
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderHubSpot
}

func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.tokens != nil {
		if !a.tokens.Credentials().HasOAuthToken() {
			return fmt.Errorf("%w: hubspot connection has no access token", domain.ErrInvalidCredentials)
		}
		return nil
	}
	if a.token == "" {
		return fmt.Errorf("%w: hubspot requires an oauth connection or a private app access token", domain.ErrInvalidCredentials)
	}
	return nil
}

func (a *Adapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	if err := a.Authenticate(ctx); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	err := a.do(ctx, providers.Request{
		Method: "GET",
		URL:    a.baseURL + "/crm/v3/objects/contacts?limit=1",
	}, nil)
	if err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.TestResult{Success: true, Message: "hubspot token is valid"}, nil
}

func (a *Adapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "create_contact":
		return a.createContact(ctx, params)
	case "find_contact":
		return a.findContact(ctx, params)
	case "update_contact":
		return a.updateContact(ctx, params)
	case "create_deal":
		return a.createDeal(ctx, params)
	case "add_note":
		return a.addNote(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

// crmObject is the v3 API's uniform object envelope.
type crmObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func (a *Adapter) createContact(ctx context.Context, params map[string]any) (any, error) {
	email, err := providers.StringParam(params, "email")
	if err != nil {
		return nil, err
	}

	props := map[string]string{"email": email}
	for param, prop := range map[string]string{
		"first_name": "firstname",
		"last_name":  "lastname",
		"phone":      "phone",
		"company":    "company",
	} {
		if v := providers.OptionalStringParam(params, param); v != "" {
			props[prop] = v
		}
	}

	var created crmObject
	err = a.do(ctx, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/crm/v3/objects/contacts",
		JSONBody: map[string]any{"properties": props},
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return created, nil
}

func (a *Adapter) findContact(ctx context.Context, params map[string]any) (any, error) {
	email, err := providers.StringParam(params, "email")
	if err != nil {
		return nil, err
	}

	search := map[string]any{
		"filterGroups": []map[string]any{{
			"filters": []map[string]any{{
				"propertyName": "email",
				"operator":     "EQ",
				"value":        email,
			}},
		}},
		"properties": []string{"email", "firstname", "lastname", "phone", "company"},
		"limit":      1,
	}

	var result struct {
		Total   int         `json:"total"`
		Results []crmObject `json:"results"`
	}
	err = a.do(ctx, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/crm/v3/objects/contacts/search",
		JSONBody: search,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}

	if result.Total == 0 {
		return nil, fmt.Errorf("%w: no contact with email %s", domain.ErrNotFound, email)
	}
	return result.Results[0], nil
}

func (a *Adapter) updateContact(ctx context.Context, params map[string]any) (any, error) {
	contactID, err := providers.StringParam(params, "contact_id")
	if err != nil {
		return nil, err
	}
	raw, ok := params["properties"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: parameter %q must be a non-empty object", domain.ErrInvalidInput, "properties")
	}

	props := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			props[k] = s
		}
	}

	var updated crmObject
	err = a.do(ctx, providers.Request{
		Method:   "PATCH",
		URL:      a.baseURL + "/crm/v3/objects/contacts/" + url.PathEscape(contactID),
		JSONBody: map[string]any{"properties": props},
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return updated, nil
}

func (a *Adapter) createDeal(ctx context.Context, params map[string]any) (any, error) {
	name, err := providers.StringParam(params, "name")
	if err != nil {
		return nil, err
	}

	props := map[string]string{"dealname": name}
	if v := providers.OptionalStringParam(params, "amount"); v != "" {
		props["amount"] = v
	}
	if v := providers.OptionalStringParam(params, "stage"); v != "" {
		props["dealstage"] = v
	}

	body := map[string]any{"properties": props}
	if contactID := providers.OptionalStringParam(params, "contact_id"); contactID != "" {
		body["associations"] = []map[string]any{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   3, // deal to contact
			}},
		}}
	}

	var created crmObject
	err = a.do(ctx, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/crm/v3/objects/deals",
		JSONBody: body,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	return created, nil
}

func (a *Adapter) addNote(ctx context.Context, params map[string]any) (any, error) {
	contactID, err := providers.StringParam(params, "contact_id")
	if err != nil {
		return nil, err
	}
	noteBody, err := providers.StringParam(params, "body")
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"properties": map[string]string{
			"hs_note_body": noteBody,
			"hs_timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"associations": []map[string]any{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   202, // note to contact
			}},
		}},
	}

	var created crmObject
	err = a.do(ctx, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/crm/v3/objects/notes",
		JSONBody: body,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return created, nil
}

func (a *Adapter) Capabilities() []string {
	return []string{"create_contact", "find_contact", "update_contact", "create_deal", "add_note"}
}

func (a *Adapter) ConfigSchema() driven.ConfigSchema {
	return driven.ConfigSchema{
		Auth:    driven.AuthKindOAuth,
		AuthURL: "/api/v1/oauth/authorize?provider=" + string(domain.ProviderHubSpot),
		Fields: []driven.ConfigField{
			{Name: "api_key", Label: "Private app access token (instead of OAuth)", Secret: true, Placeholder: "pat-..."},
		},
	}
}

// do performs an authenticated HubSpot call, refreshing the OAuth token
// first when the record has one.
func (a *Adapter) do(ctx context.Context, req providers.Request, out any) error {
	token := a.token
	if a.tokens != nil {
		t, err := a.tokens.EnsureValidToken(ctx)
		if err != nil {
			return err
		}
		token = t
	}
	req.Headers = map[string]string{"Authorization": "Bearer " + token}
	return providers.DoJSON(ctx, a.client, req, out)
}
