// Package api provides the HTTP surface for CentralFlow.
//
// It exposes RESTful endpoints for customers, tickets, team members,
// conversations and dashboard stats, plus the inbound webhook for
// webhook-driven messaging channels.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/andressabgomes/centralflow-sub000/internal/messaging"
	"github.com/andressabgomes/centralflow-sub000/internal/store"
)

// Server timeouts.
const (
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 15 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
	ShutdownTimeout     = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr               string
	WebhookVerifyToken string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithWebhookVerifyToken sets the token expected on GET /webhook verification.
func WithWebhookVerifyToken(token string) Option {
	return func(o *Opts) { o.WebhookVerifyToken = token }
}

// Server serves the CentralFlow HTTP API.
type Server struct {
	store       store.Store
	msgService  messaging.Service
	verifyToken string
	httpServer  *http.Server
}

// NewServer creates an API server over the given store and messaging channel.
func NewServer(st store.Store, msgService messaging.Service, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s := &Server{
		store:       st,
		msgService:  msgService,
		verifyToken: cfg.WebhookVerifyToken,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
	return s
}

// routes builds the request multiplexer. Sub-resource paths are dispatched
// inside the prefix handlers.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/customers", s.customersHandler)
	mux.HandleFunc("/customers/", s.customerHandler)
	mux.HandleFunc("/tickets", s.ticketsHandler)
	mux.HandleFunc("/tickets/", s.ticketHandler)
	mux.HandleFunc("/team", s.teamHandler)
	mux.HandleFunc("/team/", s.teamMemberHandler)
	mux.HandleFunc("/conversations", s.conversationsHandler)
	mux.HandleFunc("/conversations/", s.conversationHandler)
	return mux
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		slog.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown failed: %w", err)
		}
		return nil
	}
}
