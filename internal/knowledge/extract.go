package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kindredapp/kindred/internal/ai"
	"github.com/kindredapp/kindred/internal/log"
)

const extractionPrompt = `You extract long-term facts about the user from a conversation turn.
Return a JSON array of objects with "title" and "content" fields, for example:
[{"title": "Occupation", "content": "The user works as a nurse."}]
Only include durable personal facts (preferences, relationships, circumstances).
Return an empty array [] when the turn contains no such facts.
Return only the JSON array, no other text.`

// Completer produces a chat completion. Satisfied by *ai.Client.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []ai.ChatMessage) (*ai.CompletionResult, error)
}

// Extractor mines user facts out of conversation turns and stores them.
type Extractor struct {
	completer Completer
	store     *Store
	logger    log.Logger
}

// NewExtractor creates a fact extractor backed by the given store.
func NewExtractor(completer Completer, store *Store, logger log.Logger) *Extractor {
	return &Extractor{completer: completer, store: store, logger: logger}
}

type extractedFact struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExtractAndStore runs fact extraction over one user/assistant exchange and
// persists what it finds. A model reply that is not valid JSON is treated as
// "no facts", not as an error. Returns the number of items stored.
func (e *Extractor) ExtractAndStore(ctx context.Context, userID, userMessage, assistantReply string) (int, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}

	turn := fmt.Sprintf("User: %s\nAssistant: %s", userMessage, assistantReply)
	result, err := e.completer.Complete(ctx, extractionPrompt, []ai.ChatMessage{
		{Role: ai.RoleUser, Content: turn},
	})
	if err != nil {
		return 0, fmt.Errorf("extract facts: %w", err)
	}

	facts := parseFacts(result.Content, e.logger)

	stored := 0
	for _, fact := range facts {
		if fact.Content == "" {
			continue
		}
		var title *string
		if fact.Title != "" {
			title = &fact.Title
		}
		if _, err := e.store.Create(ctx, userID, title, fact.Content); err != nil {
			return stored, fmt.Errorf("store extracted fact: %w", err)
		}
		stored++
	}

	if stored > 0 {
		e.logger.Info("knowledge extracted", "user_id", userID, "facts", stored)
	}
	return stored, nil
}

// parseFacts decodes the model's JSON array, tolerating markdown code fences.
// Anything unparseable yields no facts.
func parseFacts(raw string, logger log.Logger) []extractedFact {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return nil
	}

	var facts []extractedFact
	if err := json.Unmarshal([]byte(cleaned), &facts); err != nil {
		logger.Warn("extraction reply is not valid JSON, skipping", "error", err)
		return nil
	}
	return facts
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
