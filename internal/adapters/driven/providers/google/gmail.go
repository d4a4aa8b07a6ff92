package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const gmailBase = "https://gmail.googleapis.com/gmail/v1/users/me"

var _ driven.Adapter = (*GmailAdapter)(nil)

// GmailAdapter sends and reads mail on the connected account. Sends go
// out under the tenant's own Google account, so they are not metered
// against the platform email allowance.
type GmailAdapter struct {
	*base
	baseURL string
}

func NewGmail(creds *domain.Credentials, cfg OAuthConfig) *GmailAdapter {
	return &GmailAdapter{
		base:    newBase(creds, cfg),
		baseURL: gmailBase,
	}
}

func (a *GmailAdapter) Provider() domain.Provider {
	return domain.ProviderGmail
}

func (a *GmailAdapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	var profile struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := a.do(ctx, "GET", a.baseURL+"/profile", nil, &profile); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.TestResult{
		Success: true,
		Message: "connected as " + profile.EmailAddress,
	}, nil
}

func (a *GmailAdapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "send_email":
		return a.sendEmail(ctx, params)
	case "list_messages":
		return a.listMessages(ctx, params)
	case "get_message":
		return a.getMessage(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

func (a *GmailAdapter) sendEmail(ctx context.Context, params map[string]any) (any, error) {
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

	var resp struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	payload := map[string]string{"raw": buildRawMessage(to, subject, body)}
	if err := a.do(ctx, "POST", a.baseURL+"/messages/send", payload, &resp); err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}
	return map[string]any{"id": resp.ID, "thread_id": resp.ThreadID, "to": to}, nil
}

// buildRawMessage assembles the base64url RFC 822 message the Gmail API
// expects.
func buildRawMessage(to, subject, body string) string {
	msg := strings.Join([]string{
		"To: " + to,
		"Subject: " + subject,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return base64.URLEncoding.EncodeToString([]byte(msg))
}

type gmailMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
	Payload  *struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"payload,omitempty"`
}

func (a *GmailAdapter) listMessages(ctx context.Context, params map[string]any) (any, error) {
	q := url.Values{"maxResults": {"25"}}
	if query := providers.OptionalStringParam(params, "query"); query != "" {
		q.Set("q", query)
	}

	var list struct {
		Messages []gmailMessage `json:"messages"`
	}
	if err := a.do(ctx, "GET", a.baseURL+"/messages?"+q.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return list.Messages, nil
}

func (a *GmailAdapter) getMessage(ctx context.Context, params map[string]any) (any, error) {
	id, err := providers.StringParam(params, "message_id")
	if err != nil {
		return nil, err
	}

	var msg gmailMessage
	if err := a.do(ctx, "GET", a.baseURL+"/messages/"+url.PathEscape(id), nil, &msg); err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	out := map[string]any{"id": msg.ID, "thread_id": msg.ThreadID, "snippet": msg.Snippet}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				out["from"] = h.Value
			case "Subject":
				out["subject"] = h.Value
			case "Date":
				out["date"] = h.Value
			}
		}
	}
	return out, nil
}

func (a *GmailAdapter) Capabilities() []string {
	return []string{"send_email", "list_messages", "get_message"}
}

func (a *GmailAdapter) ConfigSchema() driven.ConfigSchema {
	return oauthSchema(a.Provider())
}
