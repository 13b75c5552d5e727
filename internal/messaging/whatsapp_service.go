package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/whatsapp"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"
)

// WhatsAppService implements Service using the Whatsmeow-based whatsapp client.
type WhatsAppService struct {
	client   whatsapp.Sender
	waClient *whatsapp.Client // full client, needed for event handling and media download
	events   chan models.InboundEvent
	done     chan struct{}
}

// NewWhatsAppService creates a new WhatsAppService wrapping the given Sender.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	service := &WhatsAppService{
		client: client,
		events: make(chan models.InboundEvent, DefaultChannelBufferSize),
		done:   make(chan struct{}),
	}

	// Only a full client can register whatsmeow event handlers; an interface
	// value is treated as a mock with no inbound side.
	if waClient, ok := client.(*whatsapp.Client); ok {
		service.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface client (likely mock)")
	}

	return service
}

// ValidateAndCanonicalizeRecipient reduces a recipient to bare digits, the form
// whatsmeow JIDs use.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start begins background event processing.
func (s *WhatsAppService) Start(ctx context.Context) error {
	if s.waClient == nil {
		slog.Debug("WhatsAppService no full client available, skipping event handling")
		return nil
	}
	go s.handleEvents(ctx)
	slog.Debug("WhatsAppService event handler started")
	return nil
}

// Stop stops background processing.
func (s *WhatsAppService) Stop() error {
	slog.Info("WhatsAppService Stop invoked")
	close(s.done)
	close(s.events)
	return nil
}

// SendText sends a plain text message.
func (s *WhatsAppService) SendText(ctx context.Context, to string, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendText recipient invalid", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonical, body)
}

// SendButtons sends a message with interactive options.
func (s *WhatsAppService) SendButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendButtons recipient invalid", "error", err, "to", to)
		return err
	}
	return s.client.SendButtons(ctx, canonical, body, buttons)
}

// SendMediaWithCaption sends a media attachment.
func (s *WhatsAppService) SendMediaWithCaption(ctx context.Context, to string, media models.MediaRef, caption string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendMediaWithCaption recipient invalid", "error", err, "to", to)
		return err
	}
	return s.client.SendMediaWithCaption(ctx, canonical, media, caption)
}

// Events returns the channel of normalized inbound events.
func (s *WhatsAppService) Events() <-chan models.InboundEvent {
	return s.events
}

// handleEvents registers the whatsmeow handler and runs until the context ends.
func (s *WhatsAppService) handleEvents(ctx context.Context) {
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Error("WhatsAppService handleEvents: no client available")
		return
	}

	s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		if msg, ok := evt.(*events.Message); ok {
			s.handleIncomingMessage(ctx, msg)
		}
	})
	slog.Debug("WhatsAppService event handler registered")

	<-ctx.Done()
	slog.Debug("WhatsAppService handleEvents stopping due to context cancellation")
}

// handleIncomingMessage normalizes one whatsmeow message into an InboundEvent.
func (s *WhatsAppService) handleIncomingMessage(ctx context.Context, evt *events.Message) {
	if evt.Message == nil || evt.Info.IsFromMe {
		return
	}

	userID := evt.Info.Sender.User
	event := models.InboundEvent{
		UserID: userID,
		Time:   evt.Info.Timestamp.UnixMilli(),
	}

	switch {
	case buttonReplyID(evt.Message) != "":
		event.Kind = models.EventButton
		event.ButtonID = buttonReplyID(evt.Message)

	case evt.Message.ImageMessage != nil:
		data, err := s.waClient.DownloadImage(ctx, evt.Message.ImageMessage)
		if err != nil {
			slog.Error("WhatsAppService media download failed", "error", err, "from", userID)
			return
		}
		event.Kind = models.EventMedia
		event.Media = &models.MediaRef{
			ID:       evt.Info.ID,
			MimeType: evt.Message.ImageMessage.GetMimetype(),
			Data:     data,
		}

	case extractText(evt.Message) != "":
		event.Kind = models.EventText
		event.Text = extractText(evt.Message)

	default:
		slog.Debug("WhatsAppService ignoring unsupported message type", "from", userID)
		return
	}

	select {
	case s.events <- event:
		slog.Debug("WhatsAppService inbound event forwarded", "from", userID, "kind", event.Kind)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService events channel blocked, dropping message", "from", userID)
	}
}

// extractText pulls the text body out of the message variants that carry one.
func extractText(msg *waE2E.Message) string {
	if msg.Conversation != nil {
		return msg.GetConversation()
	}
	if msg.ExtendedTextMessage != nil {
		return msg.ExtendedTextMessage.GetText()
	}
	return ""
}

// buttonReplyID extracts the selected option from interactive reply messages.
func buttonReplyID(msg *waE2E.Message) string {
	if msg.ButtonsResponseMessage != nil {
		return msg.ButtonsResponseMessage.GetSelectedButtonID()
	}
	if msg.TemplateButtonReplyMessage != nil {
		return msg.TemplateButtonReplyMessage.GetSelectedID()
	}
	return ""
}
