package domain

import "time"

// Provider identifies an external service a tenant can connect.
type Provider string

const (
	// Messaging
	ProviderResend Provider = "resend"
	ProviderTwilio Provider = "twilio"

	// Google workspace
	ProviderGoogleCalendar Provider = "google-calendar"
	ProviderGmail          Provider = "gmail"
	ProviderGoogleDrive    Provider = "google-drive"
	ProviderGoogleDocs     Provider = "google-docs"
	ProviderGoogleSheets   Provider = "google-sheets"

	// CRM / payments / docs
	ProviderHubSpot Provider = "hubspot"
	ProviderStripe  Provider = "stripe"
	ProviderNotion  Provider = "notion"

	// Generic outbound delivery
	ProviderWebhook Provider = "webhook"
)

// IntegrationType is the coarse category of an integration.
type IntegrationType string

const (
	IntegrationTypeEmail    IntegrationType = "email"
	IntegrationTypeSMS      IntegrationType = "sms"
	IntegrationTypeCalendar IntegrationType = "calendar"
	IntegrationTypeCRM      IntegrationType = "crm"
	IntegrationTypePayment  IntegrationType = "payment"
	IntegrationTypeDocument IntegrationType = "document"
	IntegrationTypeWebhook  IntegrationType = "webhook"
)

// IntegrationStatus is the lifecycle state of an integration record.
type IntegrationStatus string

const (
	IntegrationStatusConnected    IntegrationStatus = "connected"
	IntegrationStatusError        IntegrationStatus = "error"
	IntegrationStatusDisconnected IntegrationStatus = "disconnected"
)

// Integration is one tenant's connection to one provider.
// EncryptedCredentials is the at-rest form; it is never plaintext in storage.
type Integration struct {
	ID       string            `json:"id"`
	TenantID string            `json:"tenant_id"`
	Provider Provider          `json:"provider"`
	Type     IntegrationType   `json:"type"`
	Status   IntegrationStatus `json:"status"`

	// EncryptedCredentials is the opaque cipher payload as persisted.
	EncryptedCredentials string `json:"-"`

	// Config holds provider-specific non-secret settings
	// (e.g. default calendar ID, default Notion database).
	Config map[string]string `json:"config,omitempty"`

	// WebhookURL is set for providers that both send and receive.
	WebhookURL string `json:"webhook_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IntegrationSummary is the safe view exposed over the API.
type IntegrationSummary struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	Provider   Provider          `json:"provider"`
	Type       IntegrationType   `json:"type"`
	Status     IntegrationStatus `json:"status"`
	WebhookURL string            `json:"webhook_url,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ToSummary converts an Integration to its safe view.
func (i *Integration) ToSummary() *IntegrationSummary {
	return &IntegrationSummary{
		ID:         i.ID,
		TenantID:   i.TenantID,
		Provider:   i.Provider,
		Type:       i.Type,
		Status:     i.Status,
		WebhookURL: i.WebhookURL,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

// TestResult is the unified outcome of a connection test.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TypeForProvider returns the coarse category for a provider.
func TypeForProvider(p Provider) IntegrationType {
	switch p {
	case ProviderResend, ProviderGmail:
		return IntegrationTypeEmail
	case ProviderTwilio:
		return IntegrationTypeSMS
	case ProviderGoogleCalendar:
		return IntegrationTypeCalendar
	case ProviderHubSpot:
		return IntegrationTypeCRM
	case ProviderStripe:
		return IntegrationTypePayment
	case ProviderGoogleDrive, ProviderGoogleDocs, ProviderGoogleSheets, ProviderNotion:
		return IntegrationTypeDocument
	case ProviderWebhook:
		return IntegrationTypeWebhook
	default:
		return ""
	}
}

// CoreProviders returns the providers shipped with Nexia Core.
func CoreProviders() []Provider {
	return []Provider{
		ProviderResend,
		ProviderTwilio,
		ProviderGoogleCalendar,
		ProviderGmail,
		ProviderGoogleDrive,
		ProviderGoogleDocs,
		ProviderGoogleSheets,
		ProviderHubSpot,
		ProviderStripe,
		ProviderNotion,
		ProviderWebhook,
	}
}
