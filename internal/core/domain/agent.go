package domain

import "time"

// Agent is an autonomous actor acting on behalf of a tenant.
// Execution itself lives outside this core; agents appear here only for
// integration scoping.
type Agent struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`

	// IntegrationIDs is the allow-list of integration record IDs this agent
	// may use. nil means the field was never configured (allow everything,
	// backward compatible). A non-nil empty slice means allow nothing.
	IntegrationIDs *[]string `json:"integration_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Allows reports whether the agent may use the given integration record.
func (a *Agent) Allows(integrationID string) bool {
	if a.IntegrationIDs == nil {
		return true
	}
	for _, id := range *a.IntegrationIDs {
		if id == integrationID {
			return true
		}
	}
	return false
}
