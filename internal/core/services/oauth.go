package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/catalog"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

// stateTTL bounds how long a consent screen may sit open.
const stateTTL = 10 * time.Minute

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// OAuthServiceConfig wires the redirect-flow service.
type OAuthServiceConfig struct {
	// Apps holds the platform's registered OAuth applications.
	Apps providers.OAuthApps

	// RedirectURI is our callback endpoint as registered with providers.
	RedirectURI string

	Logger *slog.Logger
}

type oauthService struct {
	integrationStore driven.IntegrationStore
	stateStore       driven.OAuthStateStore
	cipher           driven.CredentialCipher
	apps             providers.OAuthApps
	redirectURI      string
	logger           *slog.Logger

	// exchange is swappable in tests.
	exchange func(ctx context.Context, apps providers.OAuthApps, p domain.Provider, code, redirectURI string) (*domain.Credentials, error)
}

// NewOAuthService creates a new OAuthService
func NewOAuthService(
	integrationStore driven.IntegrationStore,
	stateStore driven.OAuthStateStore,
	cipher driven.CredentialCipher,
	cfg OAuthServiceConfig,
) driving.OAuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &oauthService{
		integrationStore: integrationStore,
		stateStore:       stateStore,
		cipher:           cipher,
		apps:             cfg.Apps,
		redirectURI:      cfg.RedirectURI,
		logger:           logger,
		exchange:         catalog.Exchange,
	}
}

// Authorize generates single-use CSRF state and returns the provider's
// consent URL.
func (s *oauthService) Authorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	if req.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", domain.ErrInvalidInput)
	}
	if !catalog.OAuthProvider(req.Provider) {
		return nil, fmt.Errorf("%w: %q does not use the oauth flow", domain.ErrInvalidInput, req.Provider)
	}

	state := generateState()
	now := time.Now()
	record := &driven.OAuthState{
		State:       state,
		TenantID:    req.TenantID,
		Provider:    string(req.Provider),
		RedirectURI: s.redirectURI,
		CreatedAt:   now,
		ExpiresAt:   now.Add(stateTTL),
	}
	if err := s.stateStore.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}

	authURL, err := catalog.AuthCodeURL(s.apps, req.Provider, s.redirectURI, state)
	if err != nil {
		return nil, err
	}

	return &driving.AuthorizeResponse{
		AuthorizationURL: authURL,
		State:            state,
		ExpiresAt:        record.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Callback consumes the state, exchanges the code, and persists the
// connected integration with encrypted tokens.
func (s *oauthService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if req.Error != "" {
		// The user denied consent or the provider rejected the flow;
		// consume the state so it cannot be replayed.
		if req.State != "" {
			_, _ = s.stateStore.GetAndDelete(ctx, req.State)
		}
		return nil, &driving.OAuthError{Code: req.Error, Description: req.ErrorDescription}
	}
	if req.State == "" || req.Code == "" {
		return nil, fmt.Errorf("%w: state and code are required", domain.ErrInvalidInput)
	}

	pending, err := s.stateStore.GetAndDelete(ctx, req.State)
	if err != nil {
		return nil, fmt.Errorf("load oauth state: %w", err)
	}
	if pending == nil {
		return nil, fmt.Errorf("%w: unknown or expired oauth state", domain.ErrUnauthorized)
	}

	provider := domain.Provider(pending.Provider)
	creds, err := s.exchange(ctx, s.apps, provider, req.Code, pending.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(creds)
	if err != nil {
		return nil, fmt.Errorf("encrypt credentials: %w", err)
	}

	// Demote the previous connected row, if any.
	if prior, err := s.integrationStore.GetByProvider(ctx, pending.TenantID, provider); err == nil {
		if err := s.integrationStore.UpdateStatus(ctx, prior.ID, domain.IntegrationStatusDisconnected); err != nil {
			return nil, fmt.Errorf("demote prior integration: %w", err)
		}
	}

	now := time.Now()
	integration := &domain.Integration{
		ID:                   uuid.NewString(),
		TenantID:             pending.TenantID,
		Provider:             provider,
		Type:                 domain.TypeForProvider(provider),
		Status:               domain.IntegrationStatusConnected,
		EncryptedCredentials: encrypted,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.integrationStore.Save(ctx, integration); err != nil {
		return nil, err
	}

	s.logger.Info("oauth integration connected",
		"tenant_id", pending.TenantID, "provider", provider, "integration_id", integration.ID)

	return &driving.CallbackResponse{Integration: integration.ToSummary()}, nil
}

func generateState() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
