// Package engine forwards normalized inbound messages to the
// agent-execution engine over HTTP.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// Ensure Runner implements AgentRunner
var _ driven.AgentRunner = (*Runner)(nil)

// Config holds the engine endpoint settings.
type Config struct {
	// BaseURL of the agent-execution engine. Empty disables forwarding:
	// inbound messages are logged and dropped, which keeps local
	// development working without an engine running.
	BaseURL string

	Timeout time.Duration

	Logger *slog.Logger
}

// Runner posts inbound messages to the engine's intake endpoint.
type Runner struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// HandleInbound delivers one normalized message to the engine. Without
// a configured endpoint the message is logged and dropped.
func (r *Runner) HandleInbound(ctx context.Context, msg *domain.InboundMessage) error {
	if r.baseURL == "" {
		r.logger.Info("agent engine not configured, dropping inbound message",
			"tenant_id", msg.TenantID, "provider", msg.Provider, "kind", msg.Kind)
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal inbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/inbound", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("forward to agent engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("agent engine returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}
