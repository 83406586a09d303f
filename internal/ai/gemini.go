// Package ai wraps the hosted generative content service. Calls are one-shot
// request/response with no retry policy; failure handling (fallback text,
// coin refunds) belongs to the caller.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"loungehub/internal/config"
)

const avatarPromptTemplate = "A futuristic, high-quality 3D social media avatar. " +
	"Character description: %s. Vibrant colors, cinematic lighting. Square 1:1 composition."

// FallbackReply is surfaced when a text completion fails or comes back empty.
const FallbackReply = "Thanks for the vibe! Let's keep playing."

var ErrNoImage = errors.New("ai: response contained no image payload")

// Client is the generative content surface the rest of the app consumes.
type Client interface {
	// GenerateAvatar renders a square avatar image for the description and
	// returns it as a data URL.
	GenerateAvatar(ctx context.Context, description string) (string, error)

	// GenerateText returns a plain text completion for the prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type geminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

func NewClient(ctx context.Context, cfg config.GeminiConfig) (Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiClient{
		client:     gc,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
	}, nil
}

func (c *geminiClient) GenerateAvatar(ctx context.Context, description string) (string, error) {
	prompt := fmt.Sprintf(avatarPromptTemplate, description)
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("avatar generation failed: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				encoded := base64.StdEncoding.EncodeToString(part.InlineData.Data)
				return "data:image/png;base64," + encoded, nil
			}
		}
	}
	return "", ErrNoImage
}

func (c *geminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}
	text := cleanModelOutput(resp.Text())
	if text == "" {
		return "", errors.New("ai: empty completion")
	}
	return text, nil
}

// cleanModelOutput strips the code fences models like to wrap answers in.
func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
