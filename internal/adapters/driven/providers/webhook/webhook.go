// Package webhook implements the generic outbound webhook adapter:
// JSON event delivery to a tenant-configured URL with per-destination
// filtering and optional HMAC signing.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Nexia-Signature"

// deliveryTimeout bounds one outbound POST.
const deliveryTimeout = 10 * time.Second

var _ driven.Adapter = (*Adapter)(nil)

// Adapter delivers events to one webhook destination. It does not retry;
// retry policy belongs to the caller.
type Adapter struct {
	tenantID string
	url      string
	secret   string
	filter   *domain.WebhookFilter
	client   *http.Client
}

// New creates a webhook adapter for one destination record.
func New(integration *domain.Integration, creds *domain.Credentials) *Adapter {
	return &Adapter{
		tenantID: integration.TenantID,
		url:      integration.WebhookURL,
		secret:   creds.SigningSecret,
		filter:   creds.Filter,
		client:   &http.Client{Timeout: deliveryTimeout},
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderWebhook
}

// Authenticate validates the destination URL shape.
func (a *Adapter) Authenticate(ctx context.Context) error {
	u, err := url.Parse(a.url)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: webhook_url must be an absolute http(s) URL", domain.ErrInvalidCredentials)
	}
	return nil
}

// ShouldSendEvent evaluates the destination's filter. Pure: no side
// effects, no network; filtered-out events never reach SendWebhook.
func (a *Adapter) ShouldSendEvent(eventType, agentID string, success bool) bool {
	if a.filter == nil {
		return false
	}
	return a.filter.Matches(eventType, agentID, success)
}

// SendWebhook serializes and POSTs the payload, signing it when a
// secret is configured. Any non-2xx response is an error carrying the
// destination's status code.
func (a *Adapter) SendWebhook(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(a.secret, body))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook destination returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}

// TestConnection sends a synthetic test event through the full signing
// and delivery path, not just a reachability probe.
func (a *Adapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	event := &domain.WebhookEvent{
		Type:      "test",
		TenantID:  a.tenantID,
		Success:   true,
		Payload:   map[string]any{"message": "webhook destination test"},
		Timestamp: time.Now().UTC(),
	}

	if err := a.SendWebhook(ctx, event); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.TestResult{Success: true, Message: "test event delivered"}, nil
}

func (a *Adapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "send_event":
		eventType, err := providers.StringParam(params, "type")
		if err != nil {
			return nil, err
		}
		event := &domain.WebhookEvent{
			Type:      eventType,
			TenantID:  a.tenantID,
			AgentID:   providers.OptionalStringParam(params, "agent_id"),
			Success:   boolParam(params, "success", true),
			Timestamp: time.Now().UTC(),
		}
		if payload, ok := params["payload"].(map[string]any); ok {
			event.Payload = payload
		}
		if err := a.SendWebhook(ctx, event); err != nil {
			return nil, err
		}
		return map[string]any{"delivered": true}, nil
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

func (a *Adapter) Capabilities() []string {
	return []string{"send_event"}
}

func (a *Adapter) ConfigSchema() driven.ConfigSchema {
	return driven.ConfigSchema{
		Auth: driven.AuthKindCustom,
		Fields: []driven.ConfigField{
			{Name: "webhook_url", Label: "Destination URL", Required: true, Placeholder: "https://example.com/hooks/nexia"},
			{Name: "signing_secret", Label: "Signing secret", Secret: true},
			{Name: "event_types", Label: "Event types", Required: true},
			{Name: "agent_ids", Label: "Agent IDs"},
			{Name: "status_filter", Label: "Status filter", Placeholder: "all | success | failure"},
		},
	}
}

// Sign computes the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func boolParam(params map[string]any, key string, def bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
