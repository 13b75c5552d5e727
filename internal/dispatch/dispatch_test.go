package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

type fakeService struct {
	texts   []string
	buttons []string
	media   []string
	err     error
}

func (f *fakeService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (f *fakeService) SendText(_ context.Context, to, body string) error {
	f.texts = append(f.texts, body)
	return f.err
}

func (f *fakeService) SendButtons(_ context.Context, to, body string, _ []models.Button) error {
	f.buttons = append(f.buttons, body)
	return f.err
}

func (f *fakeService) SendMediaWithCaption(_ context.Context, to string, _ models.MediaRef, caption string) error {
	f.media = append(f.media, caption)
	return f.err
}

func (f *fakeService) Start(context.Context) error        { return nil }
func (f *fakeService) Stop() error                        { return nil }
func (f *fakeService) Events() <-chan models.InboundEvent { return nil }

func TestDispatchRoutesByKind(t *testing.T) {
	svc := &fakeService{}
	d := NewDispatcher(svc)
	ctx := context.Background()

	d.Dispatch(ctx, "u1", models.TextReply("merhaba"))
	d.Dispatch(ctx, "u1", models.ButtonsReply("menü", models.Button{ID: "help_btn", Title: "Yardım"}))
	d.Dispatch(ctx, "u1", models.MediaReply(models.MediaRef{URL: "https://example.com/a.png"}, "görsel"))

	if len(svc.texts) != 1 || svc.texts[0] != "merhaba" {
		t.Errorf("texts = %v", svc.texts)
	}
	if len(svc.buttons) != 1 || svc.buttons[0] != "menü" {
		t.Errorf("buttons = %v", svc.buttons)
	}
	if len(svc.media) != 1 || svc.media[0] != "görsel" {
		t.Errorf("media = %v", svc.media)
	}
}

func TestDispatchSwallowsTransportErrors(t *testing.T) {
	svc := &fakeService{err: errors.New("socket closed")}
	d := NewDispatcher(svc)

	// Must not panic or propagate; the call simply logs.
	d.Dispatch(context.Background(), "u1", models.TextReply("merhaba"))
}

func TestDispatchNilAndMalformedReplies(t *testing.T) {
	svc := &fakeService{}
	d := NewDispatcher(svc)
	ctx := context.Background()

	d.Dispatch(ctx, "u1", nil)
	d.Dispatch(ctx, "u1", &models.Reply{Kind: models.ReplyMedia}) // missing media ref
	d.Dispatch(ctx, "u1", &models.Reply{Kind: "carrier-pigeon"})

	if len(svc.texts)+len(svc.buttons)+len(svc.media) != 0 {
		t.Error("malformed replies must not reach the transport")
	}
}
