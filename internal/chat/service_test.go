package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
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

// mockQuerier implements Querier with in-memory maps.
type mockQuerier struct {
	mu            sync.Mutex
	conversations map[string]sqlc.Conversation
	messages      map[string][]sqlc.Message
	prompts       map[string]sqlc.SystemPrompt
	defaultPrompt *sqlc.SystemPrompt
	touched       map[string]int
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{
		conversations: make(map[string]sqlc.Conversation),
		messages:      make(map[string][]sqlc.Message),
		prompts:       make(map[string]sqlc.SystemPrompt),
		touched:       make(map[string]int),
	}
}

func pgID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func (m *mockQuerier) CreateConversation(_ context.Context, arg sqlc.CreateConversationParams) (sqlc.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	conv := sqlc.Conversation{ID: pgID(id), UserID: arg.UserID, Title: arg.Title}
	m.conversations[id.String()] = conv
	return conv, nil
}

func (m *mockQuerier) GetConversation(_ context.Context, id pgtype.UUID) (sqlc.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[uuid.UUID(id.Bytes).String()]
	if !ok {
		return sqlc.Conversation{}, pgx.ErrNoRows
	}
	return conv, nil
}

func (m *mockQuerier) TouchConversation(_ context.Context, id pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[uuid.UUID(id.Bytes).String()]++
	return nil
}

func (m *mockQuerier) CreateMessage(_ context.Context, arg sqlc.CreateMessageParams) (sqlc.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := uuid.UUID(arg.ConversationID.Bytes).String()
	msg := sqlc.Message{
		ID:             pgID(uuid.New()),
		ConversationID: arg.ConversationID,
		Role:           arg.Role,
		Content:        arg.Content,
	}
	m.messages[key] = append(m.messages[key], msg)
	return msg, nil
}

func (m *mockQuerier) ListMessages(_ context.Context, arg sqlc.ListMessagesParams) ([]sqlc.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := uuid.UUID(arg.ConversationID.Bytes).String()
	msgs := m.messages[key]
	offset := int(arg.ResultOffset)
	if offset >= len(msgs) {
		return nil, nil
	}
	end := offset + int(arg.ResultLimit)
	if end > len(msgs) {
		end = len(msgs)
	}
	out := make([]sqlc.Message, end-offset)
	copy(out, msgs[offset:end])
	return out, nil
}

func (m *mockQuerier) ListConversationsByUser(_ context.Context, arg sqlc.ListConversationsByUserParams) ([]sqlc.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sqlc.Conversation
	for _, c := range m.conversations {
		if c.UserID == arg.UserID {
			out = append(out, c)
		}
	}
	if len(out) > int(arg.ResultLimit) {
		out = out[:arg.ResultLimit]
	}
	return out, nil
}

func (m *mockQuerier) DeleteConversation(_ context.Context, id pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, uuid.UUID(id.Bytes).String())
	return nil
}

func (m *mockQuerier) GetSystemPrompt(_ context.Context, id pgtype.UUID) (sqlc.SystemPrompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prompt, ok := m.prompts[uuid.UUID(id.Bytes).String()]
	if !ok {
		return sqlc.SystemPrompt{}, pgx.ErrNoRows
	}
	return prompt, nil
}

func (m *mockQuerier) GetDefaultSystemPrompt(_ context.Context) (sqlc.SystemPrompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.defaultPrompt == nil {
		return sqlc.SystemPrompt{}, pgx.ErrNoRows
	}
	return *m.defaultPrompt, nil
}

// mockCompleter records the last request and can block or fail.
type mockCompleter struct {
	mu         sync.Mutex
	reply      string
	err        error
	block      chan struct{}
	lastPrompt string
	lastMsgs   []ai.ChatMessage
}

func (m *mockCompleter) Complete(_ context.Context, systemPrompt string, messages []ai.ChatMessage) (*ai.CompletionResult, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.lastPrompt = systemPrompt
	m.lastMsgs = messages
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &ai.CompletionResult{Content: m.reply, PromptTokens: 10, CompletionTokens: 5}, nil
}

type mockRetriever struct {
	result *rag.LoggedResult
	err    error
	params rag.LogParams
}

func (m *mockRetriever) RetrieveAndLog(_ context.Context, p rag.LogParams) (*rag.LoggedResult, error) {
	m.params = p
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockExtractor struct {
	calls int
	err   error
}

func (m *mockExtractor) ExtractAndStore(_ context.Context, _, _, _ string) (int, error) {
	m.calls++
	return 0, m.err
}

func TestSend_NewConversation(t *testing.T) {
	q := newMockQuerier()
	completer := &mockCompleter{reply: "hello there"}
	svc := NewService(q, completer, nil, nil, log.NewNop())

	resp, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "hi"})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if !resp.IsNewConversation {
		t.Error("expected new conversation flag")
	}
	if resp.Reply != "hello there" {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.ConversationID == "" {
		t.Fatal("missing conversation id")
	}

	msgs := q.messages[resp.ConversationID]
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(msgs))
	}
	if msgs[0].Role != ai.RoleUser || msgs[1].Role != ai.RoleAssistant {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if q.touched[resp.ConversationID] != 1 {
		t.Error("conversation not touched")
	}
}

func TestSend_ExistingConversationKeepsHistory(t *testing.T) {
	q := newMockQuerier()
	conv, _ := q.CreateConversation(context.Background(), sqlc.CreateConversationParams{UserID: "u1"})
	convID := uuid.UUID(conv.ID.Bytes).String()
	q.CreateMessage(context.Background(), sqlc.CreateMessageParams{ConversationID: conv.ID, Role: ai.RoleUser, Content: "earlier question"})
	q.CreateMessage(context.Background(), sqlc.CreateMessageParams{ConversationID: conv.ID, Role: ai.RoleAssistant, Content: "earlier answer"})

	completer := &mockCompleter{reply: "ok"}
	svc := NewService(q, completer, nil, nil, log.NewNop())

	resp, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "follow-up", ConversationID: convID})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.IsNewConversation {
		t.Error("existing conversation flagged as new")
	}

	// History plus the new user message went to the model.
	if len(completer.lastMsgs) != 3 {
		t.Fatalf("model saw %d messages, want 3", len(completer.lastMsgs))
	}
	if completer.lastMsgs[0].Content != "earlier question" || completer.lastMsgs[2].Content != "follow-up" {
		t.Errorf("unexpected message order: %+v", completer.lastMsgs)
	}
}

func TestSend_UnknownConversation(t *testing.T) {
	svc := NewService(newMockQuerier(), &mockCompleter{}, nil, nil, log.NewNop())

	_, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "hi", ConversationID: uuid.NewString()})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("got %v, want ErrConversationNotFound", err)
	}
}

func TestSend_Validation(t *testing.T) {
	svc := NewService(newMockQuerier(), &mockCompleter{}, nil, nil, log.NewNop())

	if _, err := svc.Send(context.Background(), SendRequest{Message: "hi"}); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("got %v, want ErrEmptyUserID", err)
	}
	if _, err := svc.Send(context.Background(), SendRequest{UserID: "u1"}); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("got %v, want ErrEmptyMessage", err)
	}
}

func TestSend_UserMessageSurvivesCompletionFailure(t *testing.T) {
	q := newMockQuerier()
	completer := &mockCompleter{err: errors.New("model down")}
	svc := NewService(q, completer, nil, nil, log.NewNop())

	_, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "hi"})
	if err == nil {
		t.Fatal("expected completion error")
	}

	total := 0
	for _, msgs := range q.messages {
		total += len(msgs)
	}
	// The user message was stored before the model call and is not rolled back.
	if total != 1 {
		t.Errorf("stored messages = %d, want the user message only", total)
	}
}

func TestSend_PromptSelection(t *testing.T) {
	q := newMockQuerier()
	q.defaultPrompt = &sqlc.SystemPrompt{Content: "default prompt", IsDefault: true}
	overrideID := uuid.New()
	q.prompts[overrideID.String()] = sqlc.SystemPrompt{Content: "override prompt"}

	completer := &mockCompleter{reply: "ok"}
	svc := NewService(q, completer, nil, nil, log.NewNop())
	ctx := context.Background()

	if _, err := svc.Send(ctx, SendRequest{UserID: "u1", Message: "hi"}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if completer.lastPrompt != "default prompt" {
		t.Errorf("prompt = %q, want default", completer.lastPrompt)
	}

	if _, err := svc.Send(ctx, SendRequest{UserID: "u1", Message: "hi", OverridePromptID: overrideID.String()}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if completer.lastPrompt != "override prompt" {
		t.Errorf("prompt = %q, want override", completer.lastPrompt)
	}

	if _, err := svc.Send(ctx, SendRequest{UserID: "u1", Message: "hi", OverridePromptID: uuid.NewString()}); !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("got %v, want ErrPromptNotFound", err)
	}
}

func TestSend_FallbackPromptWithoutDefaultRow(t *testing.T) {
	completer := &mockCompleter{reply: "ok"}
	svc := NewService(newMockQuerier(), completer, nil, nil, log.NewNop())

	if _, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "hi"}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !strings.Contains(completer.lastPrompt, "Kindred") {
		t.Errorf("expected built-in fallback prompt, got %q", completer.lastPrompt)
	}
}

func TestSend_ContextInjection(t *testing.T) {
	q := newMockQuerier()
	q.defaultPrompt = &sqlc.SystemPrompt{Content: "base", IsDefault: true}
	completer := &mockCompleter{reply: "ok"}
	retriever := &mockRetriever{result: &rag.LoggedResult{
		Matches:     []vecindex.Match{{ID: "doc-1", Score: 0.9, Content: "likes tea"}},
		Context:     "likes tea",
		OperationID: "op-7",
		DurationMs:  12,
	}}
	svc := NewService(q, completer, retriever, nil, log.NewNop())

	resp, err := svc.Send(context.Background(), SendRequest{
		UserID:           "u1",
		Message:          "what should I drink",
		UseContext:       true,
		RequestDebugInfo: true,
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if !strings.Contains(completer.lastPrompt, "likes tea") {
		t.Errorf("context not injected into prompt: %q", completer.lastPrompt)
	}
	if resp.Debug == nil {
		t.Fatal("expected debug info")
	}
	if resp.Debug.OperationID != "op-7" || resp.Debug.Context != "likes tea" {
		t.Errorf("debug = %+v", resp.Debug)
	}
	if retriever.params.UserID != "u1" || retriever.params.ConversationID != resp.ConversationID {
		t.Errorf("retriever params = %+v", retriever.params)
	}
}

func TestSend_RetrievalFailureTolerated(t *testing.T) {
	q := newMockQuerier()
	completer := &mockCompleter{reply: "ok"}
	retriever := &mockRetriever{err: errors.New("index down")}
	svc := NewService(q, completer, retriever, nil, log.NewNop())

	resp, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "hi", UseContext: true})
	if err != nil {
		t.Fatalf("retrieval failure must not fail the turn: %v", err)
	}
	if resp.Reply != "ok" {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestSend_ExtractionFailureTolerated(t *testing.T) {
	q := newMockQuerier()
	extractor := &mockExtractor{err: errors.New("extraction broke")}
	svc := NewService(q, &mockCompleter{reply: "ok"}, nil, extractor, log.NewNop())

	if _, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "hi"}); err != nil {
		t.Fatalf("extraction failure must not fail the turn: %v", err)
	}
	if extractor.calls != 1 {
		t.Errorf("extractor calls = %d, want 1", extractor.calls)
	}
}

func TestSend_BusyGuard(t *testing.T) {
	q := newMockQuerier()
	conv, _ := q.CreateConversation(context.Background(), sqlc.CreateConversationParams{UserID: "u1"})
	convID := uuid.UUID(conv.ID.Bytes).String()

	block := make(chan struct{})
	completer := &mockCompleter{reply: "ok", block: block}
	svc := NewService(q, completer, nil, nil, log.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "slow", ConversationID: convID})
		done <- err
	}()

	// Wait for the first Send to reach the model call.
	deadline := time.After(2 * time.Second)
	for {
		svc.mu.Lock()
		_, inFlight := svc.busy[convID]
		svc.mu.Unlock()
		if inFlight {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first Send never acquired the conversation")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "overlap", ConversationID: convID}); !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping Send: got %v, want ErrBusy", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	// Once released the conversation accepts new turns.
	if _, err := svc.Send(context.Background(), SendRequest{UserID: "u1", Message: "again", ConversationID: convID}); err != nil {
		t.Errorf("Send after release failed: %v", err)
	}
}

func TestMessages(t *testing.T) {
	q := newMockQuerier()
	conv, _ := q.CreateConversation(context.Background(), sqlc.CreateConversationParams{UserID: "u1"})
	convID := uuid.UUID(conv.ID.Bytes).String()
	for _, content := range []string{"one", "two", "three"} {
		q.CreateMessage(context.Background(), sqlc.CreateMessageParams{ConversationID: conv.ID, Role: ai.RoleUser, Content: content})
	}

	svc := NewService(q, &mockCompleter{}, nil, nil, log.NewNop())

	msgs, err := svc.Messages(context.Background(), convID, 2, 1)
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" {
		t.Errorf("unexpected page: %+v", msgs)
	}

	if _, err := svc.Messages(context.Background(), "not-a-uuid", 10, 0); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("got %v, want ErrConversationNotFound", err)
	}
}

func TestConversations(t *testing.T) {
	q := newMockQuerier()
	title := "hello"
	q.CreateConversation(context.Background(), sqlc.CreateConversationParams{UserID: "u1", Title: &title})
	q.CreateConversation(context.Background(), sqlc.CreateConversationParams{UserID: "u2", Title: &title})

	svc := NewService(q, &mockCompleter{}, nil, nil, log.NewNop())

	convs, err := svc.Conversations(context.Background(), "u1", 10, 0)
	if err != nil {
		t.Fatalf("Conversations() error: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	if convs[0].Title != "hello" {
		t.Errorf("title = %q", convs[0].Title)
	}

	if _, err := svc.Conversations(context.Background(), "", 10, 0); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("got %v, want ErrEmptyUserID", err)
	}
}

func TestDelete(t *testing.T) {
	q := newMockQuerier()
	conv, _ := q.CreateConversation(context.Background(), sqlc.CreateConversationParams{UserID: "u1"})
	convID := uuid.UUID(conv.ID.Bytes).String()

	svc := NewService(q, &mockCompleter{}, nil, nil, log.NewNop())

	if err := svc.Delete(context.Background(), convID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if len(q.conversations) != 0 {
		t.Error("conversation still stored")
	}

	if err := svc.Delete(context.Background(), convID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("got %v, want ErrConversationNotFound", err)
	}
	if err := svc.Delete(context.Background(), "not-a-uuid"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("got %v, want ErrConversationNotFound", err)
	}
}
