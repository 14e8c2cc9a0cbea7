// Package ai wraps the OpenAI API surface used by the service: chat
// completion, text embeddings, audio transcription, and speech synthesis.
//
// Client is a thin boundary layer. Upstream errors (auth, rate limit,
// network) propagate unchanged to the caller; no retry logic lives here.
package ai

import (
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kindredapp/kindred/internal/config"
	"github.com/kindredapp/kindred/internal/log"
)

// Client provides access to the OpenAI API operations used by the service.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	api    *openai.Client
	cfg    *config.Config
	logger log.Logger
}

// NewClient creates an OpenAI client from the application configuration.
// An OpenAIBaseURL override (e.g. a proxy or compatible endpoint) is honored
// when set.
func NewClient(cfg *config.Config, logger log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is empty", config.ErrMissingAPIKey)
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		apiCfg.BaseURL = cfg.OpenAIBaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}
