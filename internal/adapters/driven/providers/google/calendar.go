package google

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const calendarBase = "https://www.googleapis.com/calendar/v3"

var _ driven.Adapter = (*CalendarAdapter)(nil)

// CalendarAdapter manages events on the connected account's calendars.
type CalendarAdapter struct {
	*base
	calendarID string
	baseURL    string
}

// NewCalendar builds a Calendar adapter. The integration's config may
// pin a calendar_id; otherwise the account's primary calendar is used.
func NewCalendar(integration *domain.Integration, creds *domain.Credentials, cfg OAuthConfig) *CalendarAdapter {
	calendarID := integration.Config["calendar_id"]
	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarAdapter{
		base:       newBase(creds, cfg),
		calendarID: calendarID,
		baseURL:    calendarBase,
	}
}

func (a *CalendarAdapter) Provider() domain.Provider {
	return domain.ProviderGoogleCalendar
}

func (a *CalendarAdapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	var list struct {
		Items []struct {
			Summary string `json:"summary"`
		} `json:"items"`
	}
	err := a.do(ctx, "GET", a.baseURL+"/users/me/calendarList?maxResults=1", nil, &list)
	if err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}
	return &domain.TestResult{Success: true, Message: "google calendar reachable"}, nil
}

func (a *CalendarAdapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "create_event":
		return a.createEvent(ctx, params)
	case "list_events":
		return a.listEvents(ctx, params)
	case "update_event":
		return a.updateEvent(ctx, params)
	case "delete_event":
		return a.deleteEvent(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

// event is the subset of the Calendar API event resource the adapter
// reads and writes.
type event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       *eventTime `json:"start,omitempty"`
	End         *eventTime `json:"end,omitempty"`
	Attendees   []attendee `json:"attendees,omitempty"`
	HTMLLink    string     `json:"htmlLink,omitempty"`
	Status      string     `json:"status,omitempty"`
}

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type attendee struct {
	Email string `json:"email"`
}

func eventFromParams(params map[string]any) (*event, error) {
	summary, err := providers.StringParam(params, "summary")
	if err != nil {
		return nil, err
	}
	start, err := providers.StringParam(params, "start")
	if err != nil {
		return nil, err
	}
	end, err := providers.StringParam(params, "end")
	if err != nil {
		return nil, err
	}

	e := &event{
		Summary:     summary,
		Description: providers.OptionalStringParam(params, "description"),
		Location:    providers.OptionalStringParam(params, "location"),
		Start:       &eventTime{DateTime: start},
		End:         &eventTime{DateTime: end},
	}
	if tz := providers.OptionalStringParam(params, "timezone"); tz != "" {
		e.Start.TimeZone = tz
		e.End.TimeZone = tz
	}
	if raw, ok := params["attendees"].([]any); ok {
		for _, v := range raw {
			if email, ok := v.(string); ok {
				e.Attendees = append(e.Attendees, attendee{Email: email})
			}
		}
	}
	return e, nil
}

func (a *CalendarAdapter) createEvent(ctx context.Context, params map[string]any) (any, error) {
	e, err := eventFromParams(params)
	if err != nil {
		return nil, err
	}

	var created event
	err = a.do(ctx, "POST", a.eventsURL(""), e, &created)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

func (a *CalendarAdapter) listEvents(ctx context.Context, params map[string]any) (any, error) {
	q := url.Values{
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"maxResults":   {"50"},
	}
	if v := providers.OptionalStringParam(params, "time_min"); v != "" {
		q.Set("timeMin", v)
	}
	if v := providers.OptionalStringParam(params, "time_max"); v != "" {
		q.Set("timeMax", v)
	}

	var list struct {
		Items []event `json:"items"`
	}
	if err := a.do(ctx, "GET", a.eventsURL("")+"?"+q.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return list.Items, nil
}

func (a *CalendarAdapter) updateEvent(ctx context.Context, params map[string]any) (any, error) {
	eventID, err := providers.StringParam(params, "event_id")
	if err != nil {
		return nil, err
	}

	patch := &event{
		Summary:     providers.OptionalStringParam(params, "summary"),
		Description: providers.OptionalStringParam(params, "description"),
		Location:    providers.OptionalStringParam(params, "location"),
	}
	if v := providers.OptionalStringParam(params, "start"); v != "" {
		patch.Start = &eventTime{DateTime: v}
	}
	if v := providers.OptionalStringParam(params, "end"); v != "" {
		patch.End = &eventTime{DateTime: v}
	}

	var updated event
	if err := a.do(ctx, "PATCH", a.eventsURL(eventID), patch, &updated); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (a *CalendarAdapter) deleteEvent(ctx context.Context, params map[string]any) (any, error) {
	eventID, err := providers.StringParam(params, "event_id")
	if err != nil {
		return nil, err
	}
	if err := a.do(ctx, "DELETE", a.eventsURL(eventID), nil, nil); err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}
	return map[string]any{"deleted": true, "event_id": eventID}, nil
}

func (a *CalendarAdapter) eventsURL(eventID string) string {
	u := fmt.Sprintf("%s/calendars/%s/events", a.baseURL, url.PathEscape(a.calendarID))
	if eventID != "" {
		u += "/" + url.PathEscape(eventID)
	}
	return u
}

func (a *CalendarAdapter) Capabilities() []string {
	return []string{"create_event", "list_events", "update_event", "delete_event"}
}

func (a *CalendarAdapter) ConfigSchema() driven.ConfigSchema {
	return oauthSchema(a.Provider())
}
