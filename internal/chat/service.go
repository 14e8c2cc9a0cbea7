// Package chat orchestrates conversations: it persists messages, assembles
// the system prompt, optionally injects retrieved context, and calls the
// completion model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kindredapp/kindred/internal/ai"
	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/rag"
	"github.com/kindredapp/kindred/internal/sqlc"
	"github.com/kindredapp/kindred/internal/vecindex"
)

var (
	// ErrBusy is returned when a Send overlaps an in-flight Send for the
	// same conversation.
	ErrBusy = errors.New("conversation is busy")
	// ErrEmptyMessage is returned when the user message is empty.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrEmptyUserID is returned when no user id is supplied.
	ErrEmptyUserID = errors.New("user id is empty")
	// ErrConversationNotFound is returned for an unknown conversation id.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrPromptNotFound is returned for an unknown override prompt id.
	ErrPromptNotFound = errors.New("system prompt not found")
)

// defaultSystemPrompt is used when the database holds no default prompt row.
const defaultSystemPrompt = "You are Kindred, a warm and attentive companion. " +
	"You remember what the user shares with you and respond with genuine care."

// historyLimit caps how many prior messages are replayed to the model.
const historyLimit = 50

// titleLimit caps the auto-generated conversation title length.
const titleLimit = 60

// Querier defines the database operations the service needs.
type Querier interface {
	CreateConversation(ctx context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error)
	GetConversation(ctx context.Context, id pgtype.UUID) (sqlc.Conversation, error)
	TouchConversation(ctx context.Context, id pgtype.UUID) error
	CreateMessage(ctx context.Context, arg sqlc.CreateMessageParams) (sqlc.Message, error)
	ListMessages(ctx context.Context, arg sqlc.ListMessagesParams) ([]sqlc.Message, error)
	ListConversationsByUser(ctx context.Context, arg sqlc.ListConversationsByUserParams) ([]sqlc.Conversation, error)
	DeleteConversation(ctx context.Context, id pgtype.UUID) error
	GetSystemPrompt(ctx context.Context, id pgtype.UUID) (sqlc.SystemPrompt, error)
	GetDefaultSystemPrompt(ctx context.Context) (sqlc.SystemPrompt, error)
}

// Completer produces chat completions. Satisfied by *ai.Client.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []ai.ChatMessage) (*ai.CompletionResult, error)
}

// ContextRetriever runs the logged retrieval path. Satisfied by
// *rag.Retriever.
type ContextRetriever interface {
	RetrieveAndLog(ctx context.Context, p rag.LogParams) (*rag.LoggedResult, error)
}

// FactExtractor mines user facts from a finished turn. Satisfied by
// *knowledge.Extractor.
type FactExtractor interface {
	ExtractAndStore(ctx context.Context, userID, userMessage, assistantReply string) (int, error)
}

// SendRequest is one user turn.
type SendRequest struct {
	UserID           string
	Message          string
	ConversationID   string
	OverridePromptID string
	UseContext       bool
	RequestDebugInfo bool
}

// DebugInfo exposes the internals of a turn when the client asks for them.
type DebugInfo struct {
	SystemPrompt string           `json:"systemPrompt"`
	Context      string           `json:"context"`
	Matches      []vecindex.Match `json:"matches"`
	RetrievalMs  int64            `json:"retrievalMs"`
	OperationID  string           `json:"operationId,omitempty"`
}

// SendResponse is the assistant's side of a turn.
type SendResponse struct {
	Reply             string
	ConversationID    string
	IsNewConversation bool
	Debug             *DebugInfo
}

// Conversation is one stored conversation, newest-activity first in listings.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one stored conversation message.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service runs conversations end to end.
type Service struct {
	queries   Querier
	completer Completer
	retriever ContextRetriever
	extractor FactExtractor
	logger    log.Logger

	mu   sync.Mutex
	busy map[string]struct{}
}

// NewService creates the chat service. retriever and extractor may be nil to
// disable context injection and fact extraction respectively.
func NewService(queries Querier, completer Completer, retriever ContextRetriever, extractor FactExtractor, logger log.Logger) *Service {
	return &Service{
		queries:   queries,
		completer: completer,
		retriever: retriever,
		extractor: extractor,
		logger:    logger,
		busy:      make(map[string]struct{}),
	}
}

// Send runs one turn: it resolves the conversation, stores the user message,
// builds the prompt, calls the model, and stores the reply. The user message
// is persisted before the model call and stays even when the call fails.
// An overlapping Send for the same conversation returns ErrBusy.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if req.UserID == "" {
		return nil, ErrEmptyUserID
	}
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}

	conv, isNew, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}
	convID := uuid.UUID(conv.ID.Bytes).String()

	if !s.acquire(convID) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, convID)
	}
	defer s.release(convID)

	history, err := s.queries.ListMessages(ctx, sqlc.ListMessagesParams{
		ConversationID: conv.ID,
		ResultLimit:    historyLimit,
		ResultOffset:   0,
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userMsg, err := s.queries.CreateMessage(ctx, sqlc.CreateMessageParams{
		ConversationID: conv.ID,
		Role:           ai.RoleUser,
		Content:        req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	systemPrompt, err := s.resolvePrompt(ctx, req.OverridePromptID)
	if err != nil {
		return nil, err
	}

	var debug *DebugInfo
	if req.UseContext && s.retriever != nil {
		result, err := s.retriever.RetrieveAndLog(ctx, rag.LogParams{
			Query:          req.Message,
			UserID:         req.UserID,
			ConversationID: convID,
			MessageID:      uuid.UUID(userMsg.ID.Bytes).String(),
			Source:         "chat",
		})
		if err != nil {
			// The turn continues without context rather than failing.
			s.logger.Error("context retrieval failed", "error", err, "conversation_id", convID)
		} else if result.Context != "" {
			systemPrompt = systemPrompt + "\n\nRelevant context about the user:\n" + result.Context
			if req.RequestDebugInfo {
				debug = &DebugInfo{
					SystemPrompt: systemPrompt,
					Context:      result.Context,
					Matches:      result.Matches,
					RetrievalMs:  result.DurationMs,
					OperationID:  result.OperationID,
				}
			}
		}
	}

	messages := make([]ai.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: req.Message})

	completion, err := s.completer.Complete(ctx, systemPrompt, messages)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	if _, err := s.queries.CreateMessage(ctx, sqlc.CreateMessageParams{
		ConversationID: conv.ID,
		Role:           ai.RoleAssistant,
		Content:        completion.Content,
	}); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	if err := s.queries.TouchConversation(ctx, conv.ID); err != nil {
		s.logger.Warn("touch conversation failed", "error", err, "conversation_id", convID)
	}

	if s.extractor != nil {
		if _, err := s.extractor.ExtractAndStore(ctx, req.UserID, req.Message, completion.Content); err != nil {
			s.logger.Warn("fact extraction failed", "error", err, "conversation_id", convID)
		}
	}

	s.logger.Info("turn complete",
		"conversation_id", convID,
		"prompt_tokens", completion.PromptTokens,
		"completion_tokens", completion.CompletionTokens)

	return &SendResponse{
		Reply:             completion.Content,
		ConversationID:    convID,
		IsNewConversation: isNew,
		Debug:             debug,
	}, nil
}

// Messages returns a page of a conversation's messages, oldest first.
func (s *Service) Messages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	parsed, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrConversationNotFound, conversationID)
	}
	if limit <= 0 || limit > 200 {
		limit = historyLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.queries.ListMessages(ctx, sqlc.ListMessagesParams{
		ConversationID: pgtype.UUID{Bytes: parsed, Valid: true},
		ResultLimit:    int32(limit),
		ResultOffset:   int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]Message, len(rows))
	for i, m := range rows {
		messages[i] = Message{
			ID:        uuid.UUID(m.ID.Bytes).String(),
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Time,
		}
	}
	return messages, nil
}

// Conversations returns a page of a user's conversations, most recently
// active first.
func (s *Service) Conversations(ctx context.Context, userID string, limit, offset int) ([]Conversation, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if limit <= 0 || limit > 200 {
		limit = historyLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.queries.ListConversationsByUser(ctx, sqlc.ListConversationsByUserParams{
		UserID:       userID,
		ResultLimit:  int32(limit),
		ResultOffset: int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	conversations := make([]Conversation, len(rows))
	for i, c := range rows {
		var title string
		if c.Title != nil {
			title = *c.Title
		}
		conversations[i] = Conversation{
			ID:        uuid.UUID(c.ID.Bytes).String(),
			Title:     title,
			CreatedAt: c.CreatedAt.Time,
			UpdatedAt: c.UpdatedAt.Time,
		}
	}
	return conversations, nil
}

// Delete removes a conversation and its messages.
func (s *Service) Delete(ctx context.Context, conversationID string) error {
	parsed, err := uuid.Parse(conversationID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrConversationNotFound, conversationID)
	}
	id := pgtype.UUID{Bytes: parsed, Valid: true}

	if _, err := s.queries.GetConversation(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %q", ErrConversationNotFound, conversationID)
		}
		return fmt.Errorf("get conversation: %w", err)
	}

	if err := s.queries.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *Service) resolveConversation(ctx context.Context, req SendRequest) (sqlc.Conversation, bool, error) {
	if req.ConversationID == "" {
		title := req.Message
		if len([]rune(title)) > titleLimit {
			title = string([]rune(title)[:titleLimit])
		}
		conv, err := s.queries.CreateConversation(ctx, sqlc.CreateConversationParams{
			UserID: req.UserID,
			Title:  &title,
		})
		if err != nil {
			return sqlc.Conversation{}, false, fmt.Errorf("create conversation: %w", err)
		}
		return conv, true, nil
	}

	parsed, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return sqlc.Conversation{}, false, fmt.Errorf("%w: %q", ErrConversationNotFound, req.ConversationID)
	}
	conv, err := s.queries.GetConversation(ctx, pgtype.UUID{Bytes: parsed, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sqlc.Conversation{}, false, fmt.Errorf("%w: %q", ErrConversationNotFound, req.ConversationID)
		}
		return sqlc.Conversation{}, false, fmt.Errorf("get conversation: %w", err)
	}
	return conv, false, nil
}

func (s *Service) resolvePrompt(ctx context.Context, overrideID string) (string, error) {
	if overrideID != "" {
		parsed, err := uuid.Parse(overrideID)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrPromptNotFound, overrideID)
		}
		prompt, err := s.queries.GetSystemPrompt(ctx, pgtype.UUID{Bytes: parsed, Valid: true})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", fmt.Errorf("%w: %q", ErrPromptNotFound, overrideID)
			}
			return "", fmt.Errorf("get system prompt: %w", err)
		}
		return prompt.Content, nil
	}

	prompt, err := s.queries.GetDefaultSystemPrompt(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defaultSystemPrompt, nil
		}
		return "", fmt.Errorf("get default system prompt: %w", err)
	}
	return prompt.Content, nil
}

func (s *Service) acquire(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, inFlight := s.busy[conversationID]; inFlight {
		return false
	}
	s.busy[conversationID] = struct{}{}
	return true
}

func (s *Service) release(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, conversationID)
}
