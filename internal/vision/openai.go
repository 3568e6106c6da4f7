// internal/vision/openai.go
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/d3vnull/restitch/api/schemas"
	"github.com/d3vnull/restitch/internal/config"
)

// OpenAIClient implements schemas.VisionClient using OpenAI chat models.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ schemas.VisionClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI vision client.
func NewOpenAIClient(cfg config.VisionConfig, logger *zap.Logger) (*OpenAIClient, error) {
	apiKey := os.Getenv("RESTITCH_OPENAI_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("RESTITCH_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.Named("vision_openai"),
	}, nil
}

// LocateElement finds the described element in the screenshot.
func (c *OpenAIClient) LocateElement(ctx context.Context, shot *schemas.Screenshot, description string) (*schemas.VisionLocation, error) {
	text, err := c.ask(ctx, shot, locatePrompt(description))
	if err != nil {
		return nil, err
	}
	var loc schemas.VisionLocation
	if err := decodeObject(text, &loc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI locate response: %w\nResponse: %s", err, text)
	}
	return &loc, nil
}

// DetectElements enumerates interactive elements in the screenshot.
func (c *OpenAIClient) DetectElements(ctx context.Context, shot *schemas.Screenshot) ([]schemas.DetectedElement, error) {
	text, err := c.ask(ctx, shot, detectPrompt)
	if err != nil {
		return nil, err
	}
	var elements []schemas.DetectedElement
	if err := decodeArray(text, &elements); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI detect response: %w\nResponse: %s", err, text)
	}
	return elements, nil
}

// Verify answers a yes/no prompt about the screenshot.
func (c *OpenAIClient) Verify(ctx context.Context, shot *schemas.Screenshot, prompt string) (*schemas.VisionVerdict, error) {
	text, err := c.ask(ctx, shot, verifyPrompt(prompt))
	if err != nil {
		return nil, err
	}
	var verdict schemas.VisionVerdict
	if err := decodeObject(text, &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI verify response: %w\nResponse: %s", err, text)
	}
	return &verdict, nil
}

func (c *OpenAIClient) ask(ctx context.Context, shot *schemas.Screenshot, question string) (string, error) {
	if shot == nil || len(shot.Data) == 0 {
		return "", fmt.Errorf("screenshot is empty")
	}
	mediaType := "image/png"
	if shot.Format == "jpeg" || shot.Format == "jpg" {
		mediaType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(shot.Data))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: question,
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content
	if responseText == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	c.logger.Debug("Vision reply received", zap.Int("length", len(responseText)))
	return responseText, nil
}
