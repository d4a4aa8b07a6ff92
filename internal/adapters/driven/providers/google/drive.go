package google

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const driveBase = "https://www.googleapis.com/drive/v3"

var _ driven.Adapter = (*DriveAdapter)(nil)

// DriveAdapter browses and organizes files on the connected account.
type DriveAdapter struct {
	*base
	baseURL string
}

func NewDrive(creds *domain.Credentials, cfg OAuthConfig) *DriveAdapter {
	return &DriveAdapter{
		base:    newBase(creds, cfg),
		baseURL: driveBase,
	}
}

func (a *DriveAdapter) Provider() domain.Provider {
	return domain.ProviderGoogleDrive
}

func (a *DriveAdapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	var about struct {
		User struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"user"`
	}
	if err := a.do(ctx, "GET", a.baseURL+"/about?fields=user", nil, &about); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.TestResult{
		Success: true,
		Message: "connected as " + about.User.EmailAddress,
	}, nil
}

func (a *DriveAdapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "list_files":
		return a.listFiles(ctx, "")
	case "search_files":
		query, err := providers.StringParam(params, "query")
		if err != nil {
			return nil, err
		}
		return a.listFiles(ctx, fmt.Sprintf("name contains '%s'", escapeQuery(query)))
	case "get_file":
		return a.getFile(ctx, params)
	case "create_folder":
		return a.createFolder(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	WebViewLink  string `json:"webViewLink,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         string `json:"size,omitempty"`
}

const fileFields = "id,name,mimeType,webViewLink,modifiedTime,size"

func (a *DriveAdapter) listFiles(ctx context.Context, query string) (any, error) {
	q := url.Values{
		"pageSize": {"50"},
		"fields":   {"files(" + fileFields + ")"},
		"orderBy":  {"modifiedTime desc"},
	}
	if query != "" {
		q.Set("q", query)
	}

	var list struct {
		Files []driveFile `json:"files"`
	}
	if err := a.do(ctx, "GET", a.baseURL+"/files?"+q.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return list.Files, nil
}

func (a *DriveAdapter) getFile(ctx context.Context, params map[string]any) (any, error) {
	id, err := providers.StringParam(params, "file_id")
	if err != nil {
		return nil, err
	}

	var f driveFile
	callURL := fmt.Sprintf("%s/files/%s?fields=%s", a.baseURL, url.PathEscape(id), fileFields)
	if err := a.do(ctx, "GET", callURL, nil, &f); err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

func (a *DriveAdapter) createFolder(ctx context.Context, params map[string]any) (any, error) {
	name, err := providers.StringParam(params, "name")
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":     name,
		"mimeType": "application/vnd.google-apps.folder",
	}
	if parent := providers.OptionalStringParam(params, "parent_id"); parent != "" {
		body["parents"] = []string{parent}
	}

	var f driveFile
	if err := a.do(ctx, "POST", a.baseURL+"/files?fields="+fileFields, body, &f); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return f, nil
}

// escapeQuery escapes single quotes for the Drive query grammar.
func escapeQuery(q string) string {
	out := make([]rune, 0, len(q))
	for _, r := range q {
		if r == '\'' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func (a *DriveAdapter) Capabilities() []string {
	return []string{"list_files", "search_files", "get_file", "create_folder"}
}

func (a *DriveAdapter) ConfigSchema() driven.ConfigSchema {
	return oauthSchema(a.Provider())
}
