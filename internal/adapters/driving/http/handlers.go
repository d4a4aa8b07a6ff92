package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and cache connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backing store is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Provider catalog

// handleListProviders godoc
// @Summary      List available providers
// @Description  Get every provider the platform can connect, with its connect-form schema
// @Tags         Providers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   driving.ProviderListItem
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /providers [get]
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.integrationService.Providers(r.Context()))
}

// Integration lifecycle

// handleConnectIntegration godoc
// @Summary      Connect an integration
// @Description  Validate submitted credentials against the provider and persist the integration (admin only). OAuth providers connect through the OAuth flow instead.
// @Tags         Integrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.ConnectRequest  true  "Provider and credentials"
// @Success      201      {object}  domain.IntegrationSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input or rejected credentials"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /integrations [post]
func (s *Server) handleConnectIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	var req driving.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.integrationService.Connect(r.Context(), authCtx.TenantID, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnknownProvider),
			errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrMissingSecret):
			writeError(w, http.StatusInternalServerError, "platform misconfigured")
		default:
			writeError(w, http.StatusInternalServerError, "failed to connect integration")
		}
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// handleListIntegrations godoc
// @Summary      List integrations
// @Description  Get all of the tenant's integrations, regardless of status
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.IntegrationSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /integrations [get]
func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	summaries, err := s.integrationService.List(r.Context(), authCtx.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list integrations")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleGetIntegration godoc
// @Summary      Get integration
// @Description  Get one integration record by ID
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Integration ID"
// @Success      200  {object}  domain.IntegrationSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Integration not found"
// @Router       /integrations/{id} [get]
func (s *Server) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	summary, err := s.integrationService.Get(r.Context(), authCtx.TenantID, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "integration not found")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleTestIntegration godoc
// @Summary      Test integration
// @Description  Run the provider's connection test for one record and record the outcome (admin only)
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Integration ID"
// @Success      200  {object}  domain.TestResult
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Integration not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /integrations/{id}/test [post]
func (s *Server) handleTestIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	result, err := s.integrationService.Test(r.Context(), authCtx.TenantID, r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "integration not found")
		default:
			writeError(w, http.StatusInternalServerError, "connection test failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDisconnectIntegration godoc
// @Summary      Disconnect integration
// @Description  Soft-disable an integration record (admin only)
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Integration ID"
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Integration not found"
// @Router       /integrations/{id}/disconnect [post]
func (s *Server) handleDisconnectIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	if err := s.integrationService.Disconnect(r.Context(), authCtx.TenantID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "integration not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// handleDeleteIntegration godoc
// @Summary      Delete integration
// @Description  Hard-delete an integration record (admin only)
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Integration ID"
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Integration not found"
// @Router       /integrations/{id} [delete]
func (s *Server) handleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	if err := s.integrationService.Delete(r.Context(), authCtx.TenantID, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "integration not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// OAuth endpoints

// handleOAuthAuthorize godoc
// @Summary      Start OAuth flow
// @Description  Generate CSRF state and return the provider's consent URL (admin only)
// @Tags         OAuth
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string  true  "Provider name"
// @Success      200       {object}  driving.AuthorizeResponse
// @Failure      400       {object}  ErrorResponse  "Provider does not use OAuth"
// @Failure      401       {object}  ErrorResponse  "Unauthorized"
// @Failure      403       {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500       {object}  ErrorResponse  "Internal server error"
// @Router       /oauth/{provider}/authorize [post]
func (s *Server) handleOAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	resp, err := s.oauthService.Authorize(r.Context(), driving.AuthorizeRequest{
		TenantID: authCtx.TenantID,
		Provider: domain.Provider(r.PathValue("provider")),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to start oauth flow")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleOAuthCallback godoc
// @Summary      OAuth callback
// @Description  Receives the provider redirect, exchanges the code, and persists the connected integration. Public - providers redirect here.
// @Tags         OAuth
// @Produce      json
// @Param        state  query     string  true   "CSRF state"
// @Param        code   query     string  false  "Authorization code"
// @Param        error  query     string  false  "Provider error code"
// @Success      200    {object}  driving.CallbackResponse
// @Failure      400    {object}  ErrorResponse  "Missing state or code, or consent denied"
// @Failure      401    {object}  ErrorResponse  "Unknown or expired state"
// @Failure      500    {object}  ErrorResponse  "Exchange failed"
// @Router       /oauth/callback [get]
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resp, err := s.oauthService.Callback(r.Context(), driving.CallbackRequest{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		var oauthErr *driving.OAuthError
		switch {
		case errors.As(err, &oauthErr):
			writeError(w, http.StatusBadRequest, oauthErr.Error())
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "unknown or expired oauth state")
		default:
			writeError(w, http.StatusInternalServerError, "oauth exchange failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Action execution

// executeActionRequest asks a provider adapter to run one action.
// @Description Action execution request
type executeActionRequest struct {
	Action string         `json:"action" example:"send_email"`
	Params map[string]any `json:"params,omitempty"`
}

// handleExecuteAction godoc
// @Summary      Execute provider action
// @Description  Run one action against the tenant's connected integration for a provider. Agent tokens are scoped by the agent's integration allow-list.
// @Tags         Actions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string                true  "Provider name"
// @Param        request   body      executeActionRequest  true  "Action and parameters"
// @Success      200       {object}  map[string]any
// @Failure      400       {object}  ErrorResponse  "Invalid input or unknown action"
// @Failure      401       {object}  ErrorResponse  "Unauthorized"
// @Failure      404       {object}  ErrorResponse  "Provider not connected"
// @Failure      409       {object}  ErrorResponse  "Reauthentication required"
// @Failure      429       {object}  ErrorResponse  "Usage limit exceeded"
// @Failure      500       {object}  ErrorResponse  "Action failed"
// @Router       /actions/{provider} [post]
func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	provider := domain.Provider(r.PathValue("provider"))

	var req executeActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	// Load through the integration map so agent allow-lists apply.
	adapters, err := s.registryService.GetIntegrationMap(r.Context(), authCtx.TenantID, authCtx.AgentID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "agent not found")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "agent belongs to another tenant")
		default:
			writeError(w, http.StatusInternalServerError, "failed to load integrations")
		}
		return
	}

	adapter, ok := adapters[provider]
	if !ok {
		writeError(w, http.StatusNotFound, "provider not connected")
		return
	}

	result, err := adapter.ExecuteAction(r.Context(), req.Action, req.Params)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsageLimitExceeded):
			writeError(w, http.StatusTooManyRequests, err.Error())
		case errors.Is(err, domain.ErrReauthRequired):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrUnknownAction), errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "action failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// Event fan-out

// handleDispatchEvent godoc
// @Summary      Dispatch event to webhooks
// @Description  Fan one event out to every matching webhook destination of the tenant
// @Tags         Events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        event  body      domain.WebhookEvent  true  "Event"
// @Success      200    {object}  driving.DispatchResult
// @Failure      400    {object}  ErrorResponse  "Missing event type"
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Failure      500    {object}  ErrorResponse  "Dispatch failed"
// @Router       /events [post]
func (s *Server) handleDispatchEvent(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	var event domain.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), authCtx.TenantID, &event)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "dispatch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Inbound provider webhooks

// handleInboundWebhook godoc
// @Summary      Inbound provider webhook
// @Description  Receives a provider callback (inbound email, SMS) for a tenant and forwards the parsed message to the agent engine. Public - providers cannot carry our auth.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        provider  path      string  true  "Provider name"
// @Param        tenant    path      string  true  "Tenant ID"
// @Success      200       {object}  StatusResponse
// @Failure      400       {object}  ErrorResponse  "Unparseable payload or provider does not accept webhooks"
// @Failure      404       {object}  ErrorResponse  "No connected integration"
// @Router       /webhooks/{provider}/{tenant} [post]
func (s *Server) handleInboundWebhook(w http.ResponseWriter, r *http.Request) {
	provider := domain.Provider(r.PathValue("provider"))
	tenantID := r.PathValue("tenant")

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	if err := s.integrationService.HandleInboundWebhook(r.Context(), tenantID, provider, payload); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no connected integration")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "webhook processing failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
