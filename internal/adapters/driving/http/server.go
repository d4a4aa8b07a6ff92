package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	integrationService driving.IntegrationService
	oauthService       driving.OAuthService
	registryService    driving.RegistryService
	dispatcher         driving.WebhookDispatcher

	// Infrastructure
	authAdapter driven.AuthAdapter
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	integrationService driving.IntegrationService,
	oauthService driving.OAuthService,
	registryService driving.RegistryService,
	dispatcher driving.WebhookDispatcher,
	authAdapter driven.AuthAdapter,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:             http.NewServeMux(),
		version:            cfg.Version,
		integrationService: integrationService,
		oauthService:       oauthService,
		registryService:    registryService,
		dispatcher:         dispatcher,
		authAdapter:        authAdapter,
		db:                 db,
		redisClient:        redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Create middleware
	authMiddleware := NewAuthMiddleware(s.authAdapter)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Provider catalog (authenticated)
	s.router.Handle("GET /api/v1/providers",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListProviders)))

	// Integration lifecycle (admin-only for mutations)
	s.router.Handle("GET /api/v1/integrations",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListIntegrations)))
	s.router.Handle("POST /api/v1/integrations",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleConnectIntegration))))
	s.router.Handle("GET /api/v1/integrations/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetIntegration)))
	s.router.Handle("POST /api/v1/integrations/{id}/test",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTestIntegration))))
	s.router.Handle("POST /api/v1/integrations/{id}/disconnect",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDisconnectIntegration))))
	s.router.Handle("DELETE /api/v1/integrations/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDeleteIntegration))))

	// OAuth flow endpoints (admin-only for authorization initiation)
	s.router.Handle("POST /api/v1/oauth/{provider}/authorize",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleOAuthAuthorize))))
	// Callback is public - receives redirects from OAuth providers
	s.router.HandleFunc("GET /api/v1/oauth/callback", s.handleOAuthCallback)

	// Action execution (agent engine and dashboard)
	s.router.Handle("POST /api/v1/actions/{provider}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleExecuteAction)))

	// Outbound event fan-out
	s.router.Handle("POST /api/v1/events",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDispatchEvent)))

	// Inbound provider webhooks (public - providers cannot authenticate)
	s.router.HandleFunc("POST /webhooks/{provider}/{tenant}", s.handleInboundWebhook)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
