package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type fakeImageService struct {
	lastParams openai.ImageGenerateParams
	resp       *openai.ImagesResponse
	err        error
}

func (f *fakeImageService) Generate(_ context.Context, body openai.ImageGenerateParams, _ ...option.RequestOption) (*openai.ImagesResponse, error) {
	f.lastParams = body
	return f.resp, f.err
}

func TestGenerateDecodesPayload(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	fake := &fakeImageService{
		resp: &openai.ImagesResponse{
			Data: []openai.Image{{B64JSON: base64.StdEncoding.EncodeToString(payload)}},
		},
	}
	c := &Client{images: fake, model: openai.ImageModelDallE3}

	ref, err := c.Generate(context.Background(), models.GenerationRequest{
		UserID: "u1",
		Prompt: "uzayda bir kahve molası",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(ref.Data) != string(payload) {
		t.Errorf("decoded payload = %v", ref.Data)
	}
	if ref.MimeType != "image/png" || ref.ID == "" {
		t.Errorf("media ref = %+v", ref)
	}
	if !strings.Contains(fake.lastParams.Prompt, "uzayda bir kahve molası") {
		t.Errorf("prompt = %q", fake.lastParams.Prompt)
	}
}

func TestGeneratePropagatesAPIError(t *testing.T) {
	fake := &fakeImageService{err: errors.New("rate limited")}
	c := &Client{images: fake, model: openai.ImageModelDallE3}

	_, err := c.Generate(context.Background(), models.GenerationRequest{UserID: "u1"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	fake := &fakeImageService{resp: &openai.ImagesResponse{}}
	c := &Client{images: fake, model: openai.ImageModelDallE3}

	if _, err := c.Generate(context.Background(), models.GenerationRequest{UserID: "u1"}); err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without API key")
	}
	if _, err := NewClient(WithAPIKey("sk-test")); err != nil {
		t.Fatalf("NewClient with key: %v", err)
	}
}
