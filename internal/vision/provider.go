// internal/vision/provider.go

// Package vision implements the vision collaborator contract on top of
// multimodal LLM providers. The engine only ever sees the narrow
// schemas.VisionClient interface.
package vision

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/d3vnull/restitch/api/schemas"
	"github.com/d3vnull/restitch/internal/config"
)

// NewClient creates a vision client for the configured provider.
func NewClient(cfg config.VisionConfig, logger *zap.Logger) (schemas.VisionClient, error) {
	switch cfg.Provider {
	case "claude", "anthropic":
		return NewClaudeClient(cfg, logger)
	case "openai", "gpt":
		return NewOpenAIClient(cfg, logger)
	case "":
		return nil, fmt.Errorf("no vision provider configured")
	default:
		return nil, fmt.Errorf("unknown vision provider: %s (supported: claude, openai)", cfg.Provider)
	}
}
