package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/room4-2/FrontDesk/domain"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// contentGenerator is the part of genai.Models the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client answers open dialogue turns and runs online counseling with Gemini.
// It holds no conversation state and is shared by every session.
type Client struct {
	models  contentGenerator
	model   string
	persona string
	org     string
	logger  *zap.Logger
}

// NewClient connects to the Gemini API.
func NewClient(ctx context.Context, apiKey, model, org string, logger *zap.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newClient(client.Models, model, org, logger), nil
}

func newClient(models contentGenerator, model, org string, logger *zap.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		models:  models,
		model:   model,
		persona: Persona(org),
		org:     org,
		logger:  logger.Named("gemini"),
	}
}

// SendTurn sends one prompt and returns the reply with markdown removed.
func (c *Client) SendTurn(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt)
}

// Counsel runs an online counseling pitch built only from the stored course details.
func (c *Client) Counsel(ctx context.Context, employeeName string, course domain.Course) (string, error) {
	return c.generate(ctx, CounselingPrompt(c.org, employeeName, course))
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.persona, genai.RoleUser),
		Temperature:       &temp,
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	res, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		c.logger.Warn("Gemini request failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := CleanMarkdown(strings.TrimSpace(res.Text()))
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	c.logger.Debug("Gemini reply", zap.Int("chars", len(text)))
	return text, nil
}
