// Package messaging defines the pluggable message transport abstraction and
// its WhatsApp and Twilio implementations.
package messaging

import (
	"context"
	"regexp"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// Constants for transport service configuration.
const (
	// DefaultChannelBufferSize defines the default buffer size for the inbound event channel.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations.
	DefaultChannelTimeout = 1 * time.Second
)

// phoneNumberRegex matches every character that is not a digit.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable message delivery abstraction.
// It supports sending the three reply shapes and provides a channel of
// normalized inbound events.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each service implements its own recipient rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText sends a plain text message to a recipient.
	SendText(ctx context.Context, to string, body string) error

	// SendButtons sends a message with interactive reply options.
	SendButtons(ctx context.Context, to string, body string, buttons []models.Button) error

	// SendMediaWithCaption sends a media attachment with a caption.
	SendMediaWithCaption(ctx context.Context, to string, media models.MediaRef, caption string) error

	// Start begins any background processing (e.g., listening for events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Events returns a channel of normalized inbound events.
	Events() <-chan models.InboundEvent
}

// canonicalizePhone strips non-digits and enforces a minimal plausible length.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", models.ErrEmptyUserID
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" || len(canonical) < 6 {
		return "", &RecipientError{Recipient: recipient}
	}
	return canonical, nil
}

// RecipientError reports a recipient that cannot be canonicalized to a phone number.
type RecipientError struct {
	Recipient string
}

func (e *RecipientError) Error() string {
	return "invalid recipient phone number: " + e.Recipient
}
