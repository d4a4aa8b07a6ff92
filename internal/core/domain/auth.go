package domain

// Role distinguishes dashboard operators from agent-engine callers.
type Role string

const (
	// RoleAdmin is a dashboard user managing a tenant's integrations.
	RoleAdmin Role = "admin"

	// RoleAgent is the agent-execution engine acting for one agent.
	RoleAgent Role = "agent"
)

// TokenClaims are the claims carried in an API token.
type TokenClaims struct {
	TenantID  string `json:"tenant_id"`
	AgentID   string `json:"agent_id,omitempty"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// AuthContext is the authenticated caller attached to a request.
type AuthContext struct {
	TenantID string
	AgentID  string
	Role     Role
}

// IsAdmin reports whether the caller may manage integrations.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}
