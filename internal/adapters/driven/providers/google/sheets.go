package google

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const sheetsBase = "https://sheets.googleapis.com/v4/spreadsheets"

var _ driven.Adapter = (*SheetsAdapter)(nil)

// SheetsAdapter creates spreadsheets and reads and appends rows. The
// integration's config may pin a spreadsheet_id used when an action
// omits one.
type SheetsAdapter struct {
	*base
	spreadsheetID string
	baseURL       string
}

func NewSheets(integration *domain.Integration, creds *domain.Credentials, cfg OAuthConfig) *SheetsAdapter {
	return &SheetsAdapter{
		base:          newBase(creds, cfg),
		spreadsheetID: integration.Config["spreadsheet_id"],
		baseURL:       sheetsBase,
	}
}

func (a *SheetsAdapter) Provider() domain.Provider {
	return domain.ProviderGoogleSheets
}

func (a *SheetsAdapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	if a.spreadsheetID == "" {
		// Without a pinned sheet there is nothing cheap to read; token
		// presence is the only check possible.
		if err := a.Authenticate(ctx); err != nil {
			return &domain.TestResult{Success: false, Message: err.Error()}, nil
		}
		return &domain.TestResult{Success: true, Message: "token present; no default spreadsheet configured"}, nil
	}

	var meta struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	}
	callURL := fmt.Sprintf("%s/%s?fields=properties.title", a.baseURL, url.PathEscape(a.spreadsheetID))
	if err := a.do(ctx, "GET", callURL, nil, &meta); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.TestResult{
		Success: true,
		Message: "connected to spreadsheet " + meta.Properties.Title,
	}, nil
}

func (a *SheetsAdapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "create_spreadsheet":
		return a.createSpreadsheet(ctx, params)
	case "append_row":
		return a.appendRow(ctx, params)
	case "read_range":
		return a.readRange(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

func (a *SheetsAdapter) createSpreadsheet(ctx context.Context, params map[string]any) (any, error) {
	title, err := providers.StringParam(params, "title")
	if err != nil {
		return nil, err
	}

	var resp struct {
		SpreadsheetID  string `json:"spreadsheetId"`
		SpreadsheetURL string `json:"spreadsheetUrl"`
	}
	body := map[string]any{"properties": map[string]string{"title": title}}
	if err := a.do(ctx, "POST", a.baseURL, body, &resp); err != nil {
		return nil, fmt.Errorf("create spreadsheet: %w", err)
	}
	return map[string]any{
		"spreadsheet_id":  resp.SpreadsheetID,
		"spreadsheet_url": resp.SpreadsheetURL,
	}, nil
}

func (a *SheetsAdapter) appendRow(ctx context.Context, params map[string]any) (any, error) {
	sheetID, err := a.resolveSpreadsheet(params)
	if err != nil {
		return nil, err
	}
	raw, ok := params["values"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: parameter %q must be a non-empty array", domain.ErrInvalidInput, "values")
	}

	rangeName := providers.OptionalStringParam(params, "range")
	if rangeName == "" {
		rangeName = "A1"
	}

	callURL := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED",
		a.baseURL, url.PathEscape(sheetID), url.PathEscape(rangeName))

	var resp struct {
		Updates struct {
			UpdatedRange string `json:"updatedRange"`
			UpdatedRows  int    `json:"updatedRows"`
		} `json:"updates"`
	}
	body := map[string]any{"values": []any{raw}}
	if err := a.do(ctx, "POST", callURL, body, &resp); err != nil {
		return nil, fmt.Errorf("append row: %w", err)
	}
	return map[string]any{
		"updated_range": resp.Updates.UpdatedRange,
		"updated_rows":  resp.Updates.UpdatedRows,
	}, nil
}

func (a *SheetsAdapter) readRange(ctx context.Context, params map[string]any) (any, error) {
	sheetID, err := a.resolveSpreadsheet(params)
	if err != nil {
		return nil, err
	}
	rangeName, err := providers.StringParam(params, "range")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Range  string  `json:"range"`
		Values [][]any `json:"values"`
	}
	callURL := fmt.Sprintf("%s/%s/values/%s",
		a.baseURL, url.PathEscape(sheetID), url.PathEscape(rangeName))
	if err := a.do(ctx, "GET", callURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("read range: %w", err)
	}
	return map[string]any{"range": resp.Range, "values": resp.Values}, nil
}

func (a *SheetsAdapter) resolveSpreadsheet(params map[string]any) (string, error) {
	if id := providers.OptionalStringParam(params, "spreadsheet_id"); id != "" {
		return id, nil
	}
	if a.spreadsheetID != "" {
		return a.spreadsheetID, nil
	}
	return "", fmt.Errorf("%w: no spreadsheet_id in params or integration config", domain.ErrInvalidInput)
}

func (a *SheetsAdapter) Capabilities() []string {
	return []string{"create_spreadsheet", "append_row", "read_range"}
}

func (a *SheetsAdapter) ConfigSchema() driven.ConfigSchema {
	return oauthSchema(a.Provider())
}
