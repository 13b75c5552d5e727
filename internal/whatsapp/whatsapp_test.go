package whatsapp

import (
	"context"
	"strings"
	"testing"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

func TestRenderButtons(t *testing.T) {
	buttons := []models.Button{
		{ID: "register_btn", Title: "📝 Kayıt Ol"},
		{ID: "help_btn", Title: "❓ Yardım"},
	}
	out := renderButtons("Seçenekler:", buttons)
	if !strings.HasPrefix(out, "Seçenekler:") {
		t.Errorf("body missing from rendered message: %q", out)
	}
	if !strings.Contains(out, "1. 📝 Kayıt Ol") || !strings.Contains(out, "2. ❓ Yardım") {
		t.Errorf("options not numbered: %q", out)
	}
}

func TestRenderButtonsEmpty(t *testing.T) {
	if out := renderButtons("Merhaba", nil); out != "Merhaba" {
		t.Errorf("renderButtons with no options = %q", out)
	}
}

func TestMockClientSatisfiesSender(t *testing.T) {
	var s Sender = NewMockClient()
	ctx := context.Background()
	if err := s.SendMessage(ctx, "905551234567", "merhaba"); err != nil {
		t.Errorf("SendMessage: %v", err)
	}
	if err := s.SendButtons(ctx, "905551234567", "menü", nil); err != nil {
		t.Errorf("SendButtons: %v", err)
	}
	if err := s.SendMediaWithCaption(ctx, "905551234567", models.MediaRef{}, "görsel"); err != nil {
		t.Errorf("SendMediaWithCaption: %v", err)
	}
}
