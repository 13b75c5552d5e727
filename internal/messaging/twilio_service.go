package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/twiliowhatsapp"
)

// TwilioService implements the Service interface using the Twilio API.
// Inbound traffic arrives through TwilioWebhookHandler rather than a socket
// of our own, so Start is a no-op.
type TwilioService struct {
	client  twiliowhatsapp.Sender
	events  chan models.InboundEvent
	done    chan struct{}
	mu      sync.RWMutex
	stopped bool
}

// NewTwilioService creates a new TwilioService wrapping the given Sender.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	return &TwilioService{
		client: client,
		events: make(chan models.InboundEvent, DefaultChannelBufferSize),
		done:   make(chan struct{}),
	}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a WhatsApp phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	canonical, err := canonicalizePhone(recipient)
	if err != nil {
		return "", err
	}
	if recipient != canonical {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// Start is a no-op; inbound messages arrive via the webhook handler.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes channels and stops the service.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.events)
	}()

	return nil
}

// SendText sends a text message via Twilio.
func (s *TwilioService) SendText(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return models.ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendText recipient invalid", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonical, body)
}

// SendButtons sends a message with interactive options via Twilio.
func (s *TwilioService) SendButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	if s.isStopped() {
		return models.ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendButtons recipient invalid", "error", err, "to", to)
		return err
	}
	return s.client.SendButtons(ctx, canonical, body, buttons)
}

// SendMediaWithCaption sends a media message. Twilio fetches the media itself,
// so the reference must carry a publicly reachable URL.
func (s *TwilioService) SendMediaWithCaption(ctx context.Context, to string, media models.MediaRef, caption string) error {
	if s.isStopped() {
		return models.ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMediaWithCaption recipient invalid", "error", err, "to", to)
		return err
	}
	if media.URL == "" {
		return fmt.Errorf("twilio media send to %s requires a media URL", canonical)
	}
	return s.client.SendMediaWithCaption(ctx, canonical, media.URL, caption)
}

// Events returns the channel of normalized inbound events.
func (s *TwilioService) Events() <-chan models.InboundEvent {
	return s.events
}

// TwilioWebhookHandler handles inbound Twilio webhook requests, normalizing
// each form post into an InboundEvent.
func (s *TwilioService) TwilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse Twilio webhook form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	from := strings.TrimPrefix(r.FormValue("From"), "whatsapp:")
	userID, err := s.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		slog.Warn("Twilio webhook sender invalid", "from", from, "error", err)
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	event := models.InboundEvent{
		UserID: userID,
		Time:   time.Now().UnixMilli(),
	}

	switch {
	case r.FormValue("ButtonPayload") != "":
		event.Kind = models.EventButton
		event.ButtonID = r.FormValue("ButtonPayload")
	case r.FormValue("NumMedia") != "" && r.FormValue("NumMedia") != "0":
		event.Kind = models.EventMedia
		event.Media = &models.MediaRef{
			ID:       r.FormValue("MessageSid"),
			URL:      r.FormValue("MediaUrl0"),
			MimeType: r.FormValue("MediaContentType0"),
		}
	default:
		event.Kind = models.EventText
		event.Text = r.FormValue("Body")
	}

	slog.Info("Twilio webhook normalized", "from", userID, "kind", event.Kind)
	s.safeEmit(event)

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *TwilioService) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// safeEmit pushes an event into the channel without blocking the webhook.
func (s *TwilioService) safeEmit(event models.InboundEvent) {
	if s.isStopped() {
		slog.Warn("TwilioService dropping inbound event (service stopped)", "from", event.UserID)
		return
	}

	select {
	case s.events <- event:
		slog.Debug("TwilioService emitted inbound event", "from", event.UserID)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService events channel blocked, dropping message", "from", event.UserID)
	}
}
