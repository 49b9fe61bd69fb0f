package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrEmptyPrompt = errors.New("empty prompt")
	ErrNoImage     = errors.New("provider returned no image")
)

// Provider turns a prompt, and optionally a source photo, into PNG bytes.
// A nil source means text-to-image. Implementations are expected to be safe
// for concurrent use.
type Provider interface {
	Generate(ctx context.Context, prompt string, source []byte) ([]byte, error)
}

// Client is the OpenAI-backed image provider
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates an image generation client for the given model
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = openai.CreateImageModelGptImage1
	}
	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// Generate requests a single square image and returns the decoded PNG bytes.
// When source is present the prompt is applied to it via the edits endpoint,
// so "convert this photo" prompts actually see the photo.
func (c *Client) Generate(ctx context.Context, prompt string, source []byte) ([]byte, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	if len(source) > 0 {
		return c.edit(ctx, prompt, source)
	}

	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	return decodeImage(resp)
}

func (c *Client) edit(ctx context.Context, prompt string, source []byte) ([]byte, error) {
	contentType := http.DetectContentType(source)
	resp, err := c.api.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          openai.WrapReader(bytes.NewReader(source), "source"+extensionFor(contentType), contentType),
		Prompt:         prompt,
		Model:          c.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("edit image: %w", err)
	}
	return decodeImage(resp)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func decodeImage(resp openai.ImageResponse) ([]byte, error) {
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImage
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}
