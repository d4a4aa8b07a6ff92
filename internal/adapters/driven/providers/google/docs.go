package google

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const docsBase = "https://docs.googleapis.com/v1/documents"

var _ driven.Adapter = (*DocsAdapter)(nil)

// DocsAdapter creates and appends to Google Docs.
type DocsAdapter struct {
	*base
	baseURL string
}

func NewDocs(creds *domain.Credentials, cfg OAuthConfig) *DocsAdapter {
	return &DocsAdapter{
		base:    newBase(creds, cfg),
		baseURL: docsBase,
	}
}

func (a *DocsAdapter) Provider() domain.Provider {
	return domain.ProviderGoogleDocs
}

// TestConnection creates nothing; it asks for a well-known missing doc
// and treats an authorized 404-shaped rejection as reachable. The Docs
// API has no cheap list call, so a scoped token check is the best
// side-effect-free probe available.
func (a *DocsAdapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	err := a.do(ctx, "GET", a.baseURL+"/connection-probe", nil, nil)
	if err == nil {
		return &domain.TestResult{Success: true, Message: "google docs reachable"}, nil
	}
	msg := err.Error()
	if strings.Contains(msg, "404") {
		return &domain.TestResult{Success: true, Message: "google docs reachable"}, nil
	}
	return &domain.TestResult{Success: false, Message: msg}, nil
}

func (a *DocsAdapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "create_document":
		return a.createDocument(ctx, params)
	case "get_document":
		return a.getDocument(ctx, params)
	case "append_text":
		return a.appendText(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

func (a *DocsAdapter) createDocument(ctx context.Context, params map[string]any) (any, error) {
	title, err := providers.StringParam(params, "title")
	if err != nil {
		return nil, err
	}

	var doc struct {
		DocumentID string `json:"documentId"`
		Title      string `json:"title"`
	}
	if err := a.do(ctx, "POST", a.baseURL, map[string]string{"title": title}, &doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	// Seed initial content in a second call when provided.
	if content := providers.OptionalStringParam(params, "content"); content != "" {
		if err := a.insertText(ctx, doc.DocumentID, content); err != nil {
			return nil, fmt.Errorf("seed document content: %w", err)
		}
	}

	return map[string]any{"document_id": doc.DocumentID, "title": doc.Title}, nil
}

func (a *DocsAdapter) getDocument(ctx context.Context, params map[string]any) (any, error) {
	id, err := providers.StringParam(params, "document_id")
	if err != nil {
		return nil, err
	}

	var doc struct {
		DocumentID string `json:"documentId"`
		Title      string `json:"title"`
		Body       struct {
			Content []struct {
				Paragraph *struct {
					Elements []struct {
						TextRun *struct {
							Content string `json:"content"`
						} `json:"textRun,omitempty"`
					} `json:"elements"`
				} `json:"paragraph,omitempty"`
			} `json:"content"`
		} `json:"body"`
	}
	if err := a.do(ctx, "GET", a.baseURL+"/"+url.PathEscape(id), nil, &doc); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	var text strings.Builder
	for _, c := range doc.Body.Content {
		if c.Paragraph == nil {
			continue
		}
		for _, e := range c.Paragraph.Elements {
			if e.TextRun != nil {
				text.WriteString(e.TextRun.Content)
			}
		}
	}

	return map[string]any{
		"document_id": doc.DocumentID,
		"title":       doc.Title,
		"text":        text.String(),
	}, nil
}

func (a *DocsAdapter) appendText(ctx context.Context, params map[string]any) (any, error) {
	id, err := providers.StringParam(params, "document_id")
	if err != nil {
		return nil, err
	}
	text, err := providers.StringParam(params, "text")
	if err != nil {
		return nil, err
	}

	if err := a.insertText(ctx, id, text); err != nil {
		return nil, fmt.Errorf("append text: %w", err)
	}
	return map[string]any{"document_id": id, "appended": true}, nil
}

// insertText appends at the end of the body via batchUpdate.
func (a *DocsAdapter) insertText(ctx context.Context, documentID, text string) error {
	body := map[string]any{
		"requests": []map[string]any{{
			"insertText": map[string]any{
				"endOfSegmentLocation": map[string]any{},
				"text":                 text,
			},
		}},
	}
	return a.do(ctx, "POST", a.baseURL+"/"+url.PathEscape(documentID)+":batchUpdate", body, nil)
}

func (a *DocsAdapter) Capabilities() []string {
	return []string{"create_document", "get_document", "append_text"}
}

func (a *DocsAdapter) ConfigSchema() driven.ConfigSchema {
	return oauthSchema(a.Provider())
}
