// Package twilio implements the Twilio SMS adapter. Tenants either
// bring their own account SID and token or ride the platform's shared
// sending number, in which case sends count against their plan.
package twilio

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const apiBase = "https://api.twilio.com/2010-04-01"

var _ driven.Adapter = (*Adapter)(nil)
var _ driven.WebhookReceiver = (*Adapter)(nil)

// Config carries the platform's shared SMS tier, used when a tenant
// connects without their own account.
type Config struct {
	PlatformAccountSID string
	PlatformAuthToken  string
	PlatformFrom       string
}

type Adapter struct {
	tenantID   string
	accountSID string
	authToken  string
	from       string
	platform   bool
	usage      *providers.UsageGate
	client     *http.Client

	baseURL string
}

// New builds a Twilio adapter from a decrypted integration record,
// falling back to the platform tier when the tenant brought no account.
func New(integration *domain.Integration, creds *domain.Credentials, cfg Config, usage *providers.UsageGate) *Adapter {
	a := &Adapter{
		tenantID:   integration.TenantID,
		accountSID: creds.AccountSID,
		authToken:  creds.AuthToken,
		from:       creds.FromNumber,
		usage:      usage,
		client:     providers.NewHTTPClient(),
		baseURL:    apiBase,
	}
	if creds.UsesPlatformTier() {
		a.platform = true
		a.accountSID = cfg.PlatformAccountSID
		a.authToken = cfg.PlatformAuthToken
		a.from = cfg.PlatformFrom
	}
	return a
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderTwilio
}

// Authenticate checks credential material without calling Twilio. A
// tenant on the platform tier fails loudly when the platform account is
// unset rather than sending with empty auth.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.platform {
		if a.accountSID == "" || a.authToken == "" {
			return fmt.Errorf("%w: platform sms tier is not configured", domain.ErrInvalidCredentials)
		}
		return nil
	}
	if a.accountSID == "" || a.authToken == "" {
		return fmt.Errorf("%w: twilio requires account_sid and auth_token", domain.ErrInvalidCredentials)
	}
	if a.from == "" {
		return fmt.Errorf("%w: twilio requires a from_number", domain.ErrInvalidCredentials)
	}
	return nil
}

// TestConnection fetches the account resource, which validates the SID
// and token pair without sending anything.
func (a *Adapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	if err := a.Authenticate(ctx); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	var account struct {
		Status       string `json:"status"`
		FriendlyName string `json:"friendly_name"`
	}
	err := providers.DoJSON(ctx, a.client, providers.Request{
		Method:  "GET",
		URL:     fmt.Sprintf("%s/Accounts/%s.json", a.baseURL, a.accountSID),
		Headers: a.headers(),
	}, &account)
	if err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	return &domain.TestResult{
		Success: true,
		Message: fmt.Sprintf("twilio account %s is %s", account.FriendlyName, account.Status),
	}, nil
}

func (a *Adapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "send_sms":
		return a.sendSMS(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

// sendSMS gates on the tenant's SMS allowance before touching Twilio,
// then records the send best effort.
func (a *Adapter) sendSMS(ctx context.Context, params map[string]any) (any, error) {
	to, err := providers.StringParam(params, "to")
	if err != nil {
		return nil, err
	}
	body, err := providers.StringParam(params, "body")
	if err != nil {
		return nil, err
	}

	if err := a.usage.Check(ctx, domain.UsageMetricSMSSent); err != nil {
		return nil, err
	}

	form := url.Values{
		"To":   {to},
		"From": {a.from},
		"Body": {body},
	}

	var resp struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	err = providers.DoJSON(ctx, a.client, providers.Request{
		Method:   "POST",
		URL:      fmt.Sprintf("%s/Accounts/%s/Messages.json", a.baseURL, a.accountSID),
		Headers:  a.headers(),
		FormBody: form.Encode(),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("send sms: %w", err)
	}

	a.usage.Record(ctx, domain.UsageMetricSMSSent)

	return map[string]any{"sid": resp.SID, "status": resp.Status, "to": to}, nil
}

func (a *Adapter) Capabilities() []string {
	return []string{"send_sms"}
}

func (a *Adapter) ConfigSchema() driven.ConfigSchema {
	return driven.ConfigSchema{
		Auth: driven.AuthKindAPIKey,
		Fields: []driven.ConfigField{
			{Name: "account_sid", Label: "Account SID", Placeholder: "AC..."},
			{Name: "auth_token", Label: "Auth token", Secret: true},
			{Name: "from_number", Label: "From number", Placeholder: "+15551234567"},
		},
	}
}

// HandleWebhook parses Twilio's form-encoded inbound SMS callback.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte) (*domain.InboundMessage, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed twilio webhook payload", domain.ErrInvalidInput)
	}

	from := form.Get("From")
	body := form.Get("Body")
	if from == "" && body == "" {
		return nil, fmt.Errorf("%w: twilio webhook payload has no From or Body", domain.ErrInvalidInput)
	}

	return &domain.InboundMessage{
		Provider:   domain.ProviderTwilio,
		TenantID:   a.tenantID,
		Kind:       "sms",
		From:       from,
		To:         form.Get("To"),
		Body:       body,
		ReceivedAt: time.Now().UTC(),
		Raw:        map[string]any{"message_sid": form.Get("MessageSid")},
	}, nil
}

func (a *Adapter) headers() map[string]string {
	token := base64.StdEncoding.EncodeToString([]byte(a.accountSID + ":" + a.authToken))
	return map[string]string{"Authorization": "Basic " + token}
}
