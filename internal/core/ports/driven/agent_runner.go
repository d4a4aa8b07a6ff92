package driven

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// AgentRunner is the boundary to the agent-execution engine. Inbound
// provider events (email replies, SMS) are handed to it after parsing;
// what the engine does with them is outside this core.
type AgentRunner interface {
	HandleInbound(ctx context.Context, msg *domain.InboundMessage) error
}
