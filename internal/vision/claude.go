// internal/vision/claude.go
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/d3vnull/restitch/api/schemas"
	"github.com/d3vnull/restitch/internal/config"
)

// ClaudeClient implements schemas.VisionClient using Anthropic's Claude.
type ClaudeClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

var _ schemas.VisionClient = (*ClaudeClient)(nil)

// NewClaudeClient creates a new Claude vision client.
func NewClaudeClient(cfg config.VisionConfig, logger *zap.Logger) (*ClaudeClient, error) {
	apiKey := os.Getenv("RESTITCH_ANTHROPIC_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("RESTITCH_ANTHROPIC_KEY or ANTHROPIC_API_KEY environment variable required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClaudeClient{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.Named("vision_claude"),
	}, nil
}

// LocateElement finds the described element in the screenshot.
func (c *ClaudeClient) LocateElement(ctx context.Context, shot *schemas.Screenshot, description string) (*schemas.VisionLocation, error) {
	text, err := c.ask(ctx, shot, locatePrompt(description))
	if err != nil {
		return nil, err
	}
	var loc schemas.VisionLocation
	if err := decodeObject(text, &loc); err != nil {
		return nil, fmt.Errorf("failed to parse Claude locate response: %w\nResponse: %s", err, text)
	}
	return &loc, nil
}

// DetectElements enumerates interactive elements in the screenshot.
func (c *ClaudeClient) DetectElements(ctx context.Context, shot *schemas.Screenshot) ([]schemas.DetectedElement, error) {
	text, err := c.ask(ctx, shot, detectPrompt)
	if err != nil {
		return nil, err
	}
	var elements []schemas.DetectedElement
	if err := decodeArray(text, &elements); err != nil {
		return nil, fmt.Errorf("failed to parse Claude detect response: %w\nResponse: %s", err, text)
	}
	return elements, nil
}

// Verify answers a yes/no prompt about the screenshot.
func (c *ClaudeClient) Verify(ctx context.Context, shot *schemas.Screenshot, prompt string) (*schemas.VisionVerdict, error) {
	text, err := c.ask(ctx, shot, verifyPrompt(prompt))
	if err != nil {
		return nil, err
	}
	var verdict schemas.VisionVerdict
	if err := decodeObject(text, &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse Claude verify response: %w\nResponse: %s", err, text)
	}
	return &verdict, nil
}

// ask sends one screenshot plus question and returns the raw reply text.
func (c *ClaudeClient) ask(ctx context.Context, shot *schemas.Screenshot, question string) (string, error) {
	if shot == nil || len(shot.Data) == 0 {
		return "", fmt.Errorf("screenshot is empty")
	}
	mediaType := "image/png"
	if shot.Format == "jpeg" || shot.Format == "jpg" {
		mediaType = "image/jpeg"
	}
	encoded := base64.StdEncoding.EncodeToString(shot.Data)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, encoded),
				anthropic.NewTextBlock(question),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return "", fmt.Errorf("empty response from Claude")
	}
	c.logger.Debug("Vision reply received", zap.Int("length", len(responseText)))
	return responseText, nil
}
