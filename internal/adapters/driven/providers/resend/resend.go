// Package resend implements the Resend transactional email adapter.
// Tenants either bring their own Resend API key or ride the platform's
// shared sending domain, in which case sends count against their plan.
package resend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const apiBase = "https://api.resend.com"

var _ driven.Adapter = (*Adapter)(nil)
var _ driven.WebhookReceiver = (*Adapter)(nil)

// Config carries the platform's shared email tier, used when a tenant
// connects without their own key.
type Config struct {
	PlatformAPIKey string
	PlatformFrom   string
}

type Adapter struct {
	tenantID string
	apiKey   string
	from     string
	platform bool
	usage    *providers.UsageGate
	client   *http.Client

	// baseURL is overridable in tests.
	baseURL string
}

// New builds a Resend adapter from a decrypted integration record,
// falling back to the platform tier when the tenant brought no key.
func New(integration *domain.Integration, creds *domain.Credentials, cfg Config, usage *providers.UsageGate) *Adapter {
	a := &Adapter{
		tenantID: integration.TenantID,
		apiKey:   creds.APIKey,
		from:     creds.FromEmail,
		usage:    usage,
		client:   providers.NewHTTPClient(),
		baseURL:  apiBase,
	}
	if creds.UsesPlatformTier() {
		a.platform = true
		a.apiKey = cfg.PlatformAPIKey
		a.from = cfg.PlatformFrom
	}
	return a
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderResend
}

// Authenticate checks key material without calling Resend. A tenant on
// the platform tier fails loudly when the platform key is unset rather
// than sending with empty auth.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.platform {
		if a.apiKey == "" {
			return fmt.Errorf("%w: platform email tier is not configured", domain.ErrInvalidCredentials)
		}
		return nil
	}
	if !strings.HasPrefix(a.apiKey, "re_") {
		return fmt.Errorf("%w: resend api keys start with re_", domain.ErrInvalidCredentials)
	}
	return nil
}

// TestConnection lists sending domains, a read-only call that exercises
// the key.
func (a *Adapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	if err := a.Authenticate(ctx); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	err := providers.DoJSON(ctx, a.client, providers.Request{
		Method:  "GET",
		URL:     a.baseURL + "/domains",
		Headers: a.headers(),
	}, nil)
	if err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	return &domain.TestResult{Success: true, Message: "resend key is valid"}, nil
}

func (a *Adapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "send_email":
		return a.sendEmail(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

type sendResponse struct {
	ID string `json:"id"`
}

// sendEmail checks the tenant's email allowance, sends through Resend,
// then records the send. The limit check happens before any network
// traffic so an over-limit tenant never reaches the provider.
func (a *Adapter) sendEmail(ctx context.Context, params map[string]any) (any, error) {
	to, err := providers.StringParam(params, "to")
	if err != nil {
		return nil, err
	}
	subject, err := providers.StringParam(params, "subject")
	if err != nil {
		return nil, err
	}
	body, err := providers.StringParam(params, "body")
	if err != nil {
		return nil, err
	}

	if err := a.usage.Check(ctx, domain.UsageMetricEmailsSent); err != nil {
		return nil, err
	}

	from := a.from
	if v := providers.OptionalStringParam(params, "from"); v != "" && !a.platform {
		from = v
	}

	payload := map[string]any{
		"from":    from,
		"to":      []string{to},
		"subject": subject,
	}
	if providers.OptionalStringParam(params, "format") == "html" {
		payload["html"] = body
	} else {
		payload["text"] = body
	}
	if replyTo := providers.OptionalStringParam(params, "reply_to"); replyTo != "" {
		payload["reply_to"] = replyTo
	}

	var resp sendResponse
	err = providers.DoJSON(ctx, a.client, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + "/emails",
		Headers:  a.headers(),
		JSONBody: payload,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}

	a.usage.Record(ctx, domain.UsageMetricEmailsSent)

	return map[string]any{"id": resp.ID, "to": to}, nil
}

func (a *Adapter) Capabilities() []string {
	return []string{"send_email"}
}

func (a *Adapter) ConfigSchema() driven.ConfigSchema {
	return driven.ConfigSchema{
		Auth: driven.AuthKindAPIKey,
		Fields: []driven.ConfigField{
			{Name: "api_key", Label: "Resend API key", Secret: true, Placeholder: "re_..."},
			{Name: "from_email", Label: "From address", Placeholder: "agent@yourdomain.com"},
		},
	}
}

// webhookPayload is Resend's event envelope.
type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Text    string   `json:"text"`
	} `json:"data"`
}

// HandleWebhook normalizes a Resend event callback. Inbound replies
// carry sender and body; delivery events carry only routing metadata.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte) (*domain.InboundMessage, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: malformed resend webhook payload", domain.ErrInvalidInput)
	}
	if p.Type == "" {
		return nil, fmt.Errorf("%w: resend webhook payload has no type", domain.ErrInvalidInput)
	}

	msg := &domain.InboundMessage{
		Provider:   domain.ProviderResend,
		TenantID:   a.tenantID,
		Kind:       "email",
		From:       p.Data.From,
		Subject:    p.Data.Subject,
		Body:       p.Data.Text,
		ReceivedAt: time.Now().UTC(),
		Raw:        map[string]any{"type": p.Type},
	}
	if len(p.Data.To) > 0 {
		msg.To = p.Data.To[0]
	}
	return msg, nil
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.apiKey}
}
