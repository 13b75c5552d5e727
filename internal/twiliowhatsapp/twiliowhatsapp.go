// Package twiliowhatsapp wraps the Twilio REST API for WhatsApp integration in KayitFlow.
package twiliowhatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender is the outbound surface of the Twilio client (for production and testing).
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
	SendButtons(ctx context.Context, to string, body string, buttons []models.Button) error
	SendMediaWithCaption(ctx context.Context, to string, mediaURL string, caption string) error
}

// Opts holds configuration options for the Twilio WhatsApp client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string // WhatsApp number in "whatsapp:+1234567890" format
}

// Option defines a configuration option for the Twilio WhatsApp client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sending WhatsApp number.
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// Client wraps the Twilio REST API for WhatsApp.
type Client struct {
	client    *twilio.RestClient
	fromWhats string
}

// NewClient creates a Twilio WhatsApp client, falling back to the standard
// TWILIO_* environment variables for unset options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &Client{
		client:    client,
		fromWhats: cfg.FromWhats,
	}, nil
}

// SendMessage sends a WhatsApp text message via the Twilio API.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + strings.TrimPrefix(to, "+"))
	params.SetFrom(c.fromWhats)
	params.SetBody(body)

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendMessage failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	slog.Debug("Twilio message sent", "to", to)
	return nil
}

// SendButtons sends the options as a numbered list. The Twilio Go SDK exposes
// no WhatsApp interactive button API, so replies come back as plain keywords.
func (c *Client) SendButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	var b strings.Builder
	b.WriteString(body)
	if len(buttons) > 0 {
		b.WriteString("\n")
		for i, btn := range buttons {
			fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Title)
		}
	}
	return c.SendMessage(ctx, to, b.String())
}

// SendMediaWithCaption sends a media message referencing a publicly reachable URL.
func (c *Client) SendMediaWithCaption(ctx context.Context, to string, mediaURL string, caption string) error {
	if mediaURL == "" {
		return fmt.Errorf("media URL for %s is empty", to)
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:+" + strings.TrimPrefix(to, "+"))
	params.SetFrom(c.fromWhats)
	params.SetBody(caption)
	params.SetMediaUrl([]string{mediaURL})

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SendMediaWithCaption failed", "to", to, "error", err)
		return fmt.Errorf("failed to send media to %s: %w", to, err)
	}
	slog.Debug("Twilio media message sent", "to", to)
	return nil
}

// MockClient records outbound calls for tests.
type MockClient struct {
	SentMessages  []SentMessage
	MediaMessages []MediaMessage
}

// SentMessage is one recorded text or button send.
type SentMessage struct {
	To   string
	Body string
}

// MediaMessage is one recorded media send.
type MediaMessage struct {
	To       string
	MediaURL string
	Caption  string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}

func (m *MockClient) SendButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	var b strings.Builder
	b.WriteString(body)
	for i, btn := range buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, btn.Title)
	}
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: b.String()})
	return nil
}

func (m *MockClient) SendMediaWithCaption(ctx context.Context, to string, mediaURL string, caption string) error {
	m.MediaMessages = append(m.MediaMessages, MediaMessage{To: to, MediaURL: mediaURL, Caption: caption})
	return nil
}
