package domain

import "time"

// StatusFilter selects which event outcomes a webhook destination receives.
type StatusFilter string

const (
	StatusFilterAll     StatusFilter = "all"
	StatusFilterSuccess StatusFilter = "success"
	StatusFilterFailure StatusFilter = "failure"
)

// WebhookFilter scopes which events a destination receives.
// An event is delivered iff it passes all three dimensions.
type WebhookFilter struct {
	// EventTypes the destination subscribed to. Empty means nothing matches;
	// destinations must subscribe explicitly.
	EventTypes []string `json:"event_types"`

	// AgentIDs restricts delivery to events from these agents.
	// Empty means events from all agents.
	AgentIDs []string `json:"agent_ids,omitempty"`

	// Status restricts delivery by event outcome.
	Status StatusFilter `json:"status_filter"`
}

// Matches reports whether an event passes every filter dimension.
func (f *WebhookFilter) Matches(eventType, agentID string, success bool) bool {
	typeOK := false
	for _, t := range f.EventTypes {
		if t == eventType {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}

	if len(f.AgentIDs) > 0 {
		agentOK := false
		for _, id := range f.AgentIDs {
			if id == agentID {
				agentOK = true
				break
			}
		}
		if !agentOK {
			return false
		}
	}

	switch f.Status {
	case StatusFilterSuccess:
		return success
	case StatusFilterFailure:
		return !success
	default:
		return true
	}
}

// WebhookEvent is an outbound event offered to webhook destinations.
type WebhookEvent struct {
	Type      string         `json:"type"`
	TenantID  string         `json:"tenant_id"`
	AgentID   string         `json:"agent_id,omitempty"`
	Success   bool           `json:"success"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// InboundMessage is a normalized inbound event parsed from a provider
// webhook (email reply, SMS, delivery notification).
type InboundMessage struct {
	Provider   Provider       `json:"provider"`
	TenantID   string         `json:"tenant_id"`
	Kind       string         `json:"kind"` // "email", "sms", "event"
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
	Raw        map[string]any `json:"raw,omitempty"`
}
