package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Role constants for chat messages, matching the wire values the
// completion API expects.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ChatMessage is one turn in a completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// CompletionResult holds the assistant reply and token accounting for one
// completion call.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Complete runs a chat completion with the given system prompt and message
// history. Messages must be in conversation order; the system prompt is
// prepended when non-empty.
func (c *Client) Complete(ctx context.Context, systemPrompt string, messages []ChatMessage) (*CompletionResult, error) {
	reqMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{
			Role:    RoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    reqMessages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	return &CompletionResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
