// Package api provides the HTTP surface and main server logic for KayitFlow.
//
// It exposes the webhook endpoints that receive messaging events, a health
// probe, and an admin listing of recorded registrations. Events flow from the
// webhook (or the messaging service's own event channel) into the engine
// driver; the HTTP response never waits on conversation processing.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/engine"
	"github.com/KayitWorks/KayitFlow/internal/messaging"
	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/store"
)

// Constants for server configuration.
const (
	// DefaultAddr is the default listen address for the API server.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP listener.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultEventTimeout bounds the processing of one inbound event.
	DefaultEventTimeout = 2 * time.Minute
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string
	VerifyToken string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// Server wires the messaging transport, the engine driver and the completion
// store behind the HTTP endpoints.
type Server struct {
	addr        string
	verifyToken string
	svc         messaging.Service
	driver      *engine.Driver
	completions store.CompletionStore
	httpServer  *http.Server
	startTime   time.Time
}

// NewServer creates an API server over the given collaborators.
func NewServer(svc messaging.Service, driver *engine.Driver, completions store.CompletionStore, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:        cfg.Addr,
		verifyToken: cfg.VerifyToken,
		svc:         svc,
		driver:      driver,
		completions: completions,
		startTime:   time.Now(),
	}
}

// Start launches the messaging service, the event pump and the HTTP listener.
// It blocks until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	go s.pumpEvents(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/completions", s.completionsHandler)
	if twilioSvc, ok := s.svc.(*messaging.TwilioService); ok {
		mux.HandleFunc("/webhook/twilio", twilioSvc.TwilioWebhookHandler)
		slog.Debug("Server registered Twilio webhook endpoint")
	}

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("KayitFlow API running", "addr", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() error {
	slog.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server HTTP shutdown failed", "error", err)
	}
	if err := s.svc.Stop(); err != nil {
		slog.Error("Server messaging service stop failed", "error", err)
	}
	return nil
}

// pumpEvents drains the messaging service's event channel into the driver.
// Each event gets its own bounded context; a slow collaborator cannot stall
// the channel forever.
func (s *Server) pumpEvents(ctx context.Context) {
	events := s.svc.Events()
	if events == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.processEvent(ctx, ev)
		}
	}
}

func (s *Server) processEvent(ctx context.Context, ev models.InboundEvent) {
	evCtx, cancel := context.WithTimeout(ctx, DefaultEventTimeout)
	defer cancel()
	if err := s.driver.HandleEvent(evCtx, ev); err != nil {
		slog.Error("Server event processing failed", "error", err, "user", ev.UserID)
	}
}
