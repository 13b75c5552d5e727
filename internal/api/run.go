// This file composes the application modules and runs the server.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/dispatch"
	"github.com/KayitWorks/KayitFlow/internal/engine"
	"github.com/KayitWorks/KayitFlow/internal/genai"
	"github.com/KayitWorks/KayitFlow/internal/messaging"
	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/scheduler"
	"github.com/KayitWorks/KayitFlow/internal/session"
	"github.com/KayitWorks/KayitFlow/internal/store"
	"github.com/KayitWorks/KayitFlow/internal/twiliowhatsapp"
	"github.com/KayitWorks/KayitFlow/internal/whatsapp"
)

// Messenger backend identifiers.
const (
	MessengerWhatsmeow = "whatsmeow"
	MessengerTwilio    = "twilio"
)

// RunOpts holds the composition-level choices that no single module owns.
type RunOpts struct {
	Messenger   string
	FlowVariant models.FlowVariant
	MaxAttempts int
	DigestCron  string // cron expression for the daily registration digest
	AdminPhone  string // recipient of the digest message, optional
}

// Run wires all modules together and serves until interrupted.
func Run(runCfg RunOpts, waOpts []whatsapp.Option, sessionOpts []session.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	variant := runCfg.FlowVariant
	if variant == "" {
		variant = models.FlowBasic
	}
	if !models.IsValidFlowVariant(variant) {
		return fmt.Errorf("unknown flow variant %q", variant)
	}

	completions, err := store.NewStore(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open completion store: %w", err)
	}
	defer completions.Close()

	sessions, err := openSessionStore(sessionOpts)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer sessions.Close()

	svc, err := openMessagingService(runCfg.Messenger, waOpts)
	if err != nil {
		return err
	}

	var generator engine.ContentGenerator
	genaiClient, err := genai.NewClient(genaiOpts...)
	switch {
	case err == nil:
		generator = genaiClient
	case variant == models.FlowWizard:
		return fmt.Errorf("wizard flow requires a GenAI client: %w", err)
	default:
		slog.Warn("GenAI client unavailable, continuing without generation", "error", err)
	}

	flow := engine.NewFlow(variant, runCfg.MaxAttempts)
	driver := engine.NewDriver(flow, sessions, completions, generator, dispatch.NewDispatcher(svc))
	server := NewServer(svc, driver, completions, apiOpts...)

	if runCfg.DigestCron != "" {
		sched := scheduler.NewScheduler()
		defer sched.Stop()
		if err := sched.AddJob(runCfg.DigestCron, digestJob(svc, completions, runCfg.AdminPhone)); err != nil {
			return fmt.Errorf("failed to schedule registration digest: %w", err)
		}
		slog.Info("Registration digest scheduled", "cron", runCfg.DigestCron)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("KayitFlow modules composed", "messenger", runCfg.Messenger, "flow", variant)
	return server.Start(ctx)
}

// digestJob reports the running registration count. When adminPhone is set
// the digest is also sent over the messaging service.
func digestJob(svc messaging.Service, completions store.CompletionStore, adminPhone string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		records, err := completions.ListCompletions(ctx)
		if err != nil {
			slog.Error("Registration digest failed to list completions", "error", err)
			return
		}
		slog.Info("Registration digest", "total", len(records))
		if adminPhone == "" {
			return
		}
		body := fmt.Sprintf("📋 KayitFlow günlük özet: toplam %d kayıt tamamlandı.", len(records))
		if err := svc.SendText(ctx, adminPhone, body); err != nil {
			slog.Error("Registration digest send failed", "to", adminPhone, "error", err)
		}
	}
}

func openSessionStore(sessionOpts []session.Option) (session.Store, error) {
	var cfg session.Opts
	for _, opt := range sessionOpts {
		opt(&cfg)
	}
	if cfg.RedisAddr != "" {
		slog.Debug("Opening Redis session store", "addr", cfg.RedisAddr)
		return session.NewRedisStore(sessionOpts...)
	}
	slog.Debug("Opening in-memory session store")
	return session.NewMemoryStore(sessionOpts...), nil
}

func openMessagingService(messenger string, waOpts []whatsapp.Option) (messaging.Service, error) {
	switch messenger {
	case MessengerTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		return messaging.NewTwilioService(client), nil
	case MessengerWhatsmeow, "":
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	default:
		return nil, fmt.Errorf("unknown messenger backend %q", messenger)
	}
}
