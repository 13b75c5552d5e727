// Package genai generates personalized images from wizard sessions using the
// OpenAI API.
package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// imageService defines the minimal interface for image generation.
type imageService interface {
	Generate(ctx context.Context, body openai.ImageGenerateParams, opts ...option.RequestOption) (*openai.ImagesResponse, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  openai.ImageModel
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the image model to use.
func WithModel(model openai.ImageModel) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI image service for generating wizard results.
type Client struct {
	images imageService
	model  openai.ImageModel
}

// NewClient initializes a new GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ImageModelDallE3
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{images: &cli.Images, model: cfg.Model}, nil
}

// Generate renders the user's described scene as an image and returns the
// decoded payload.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (models.MediaRef, error) {
	prompt := buildPrompt(req)
	slog.Debug("GenAI Generate invoked", "user", req.UserID, "prompt_length", len(prompt))

	resp, err := c.images.Generate(ctx, openai.ImageGenerateParams{
		Model:          c.model,
		Prompt:         prompt,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		slog.Error("GenAI Generate request failed", "error", err, "user", req.UserID)
		return models.MediaRef{}, fmt.Errorf("image generation for %s failed: %w", req.UserID, err)
	}
	if len(resp.Data) == 0 {
		return models.MediaRef{}, fmt.Errorf("image generation for %s returned no data", req.UserID)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		slog.Error("GenAI Generate payload decode failed", "error", err, "user", req.UserID)
		return models.MediaRef{}, fmt.Errorf("image payload for %s undecodable: %w", req.UserID, err)
	}

	slog.Info("GenAI Generate succeeded", "user", req.UserID, "bytes", len(data))
	return models.MediaRef{
		ID:       uuid.NewString(),
		MimeType: "image/png",
		Data:     data,
		URL:      resp.Data[0].URL,
	}, nil
}

// buildPrompt turns the collected dream text into a rendering instruction.
// The user's photos steer only the framing text; the image API takes no
// reference images on this endpoint.
func buildPrompt(req models.GenerationRequest) string {
	var b strings.Builder
	b.WriteString("A warm, photorealistic portrait scene")
	if dream := strings.TrimSpace(req.Prompt); dream != "" {
		b.WriteString(" depicting: ")
		b.WriteString(dream)
	}
	b.WriteString(". Cheerful lighting, celebratory mood, high detail.")
	return b.String()
}
