package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyInput indicates an embedding was requested for empty text.
var ErrEmptyInput = errors.New("embedding input is empty")

// Embed converts text into a fixed-length embedding vector using the
// configured embedding model.
//
// The input must be non-empty. No chunking or truncation happens here; any
// model length limit is enforced upstream and surfaces as a propagated
// API error.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbedderModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned for input (%d chars)", len(text))
	}

	return resp.Data[0].Embedding, nil
}
