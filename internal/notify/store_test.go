package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

type mockQuerier struct {
	tokens map[string]sqlc.UpsertPushTokenParams
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{tokens: make(map[string]sqlc.UpsertPushTokenParams)}
}

func (m *mockQuerier) UpsertPushToken(_ context.Context, arg sqlc.UpsertPushTokenParams) error {
	m.tokens[arg.Token] = arg
	return nil
}

func (m *mockQuerier) DeletePushToken(_ context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func TestRegister(t *testing.T) {
	q := newMockQuerier()
	store := NewStore(q, log.NewNop())
	ctx := context.Background()

	if err := store.Register(ctx, "tok-1", "u1", PlatformIOS); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	// Re-registering moves the token to another user.
	if err := store.Register(ctx, "tok-1", "u2", PlatformIOS); err != nil {
		t.Fatalf("re-Register() error: %v", err)
	}
	if len(q.tokens) != 1 || q.tokens["tok-1"].UserID != "u2" {
		t.Errorf("tokens = %+v", q.tokens)
	}

	// Every platform the push_tokens CHECK admits is accepted here too.
	for _, platform := range []string{PlatformIOS, PlatformAndroid, PlatformWeb} {
		if err := store.Register(ctx, "tok-"+platform, "u1", platform); err != nil {
			t.Errorf("Register(%s) error: %v", platform, err)
		}
	}
}

func TestRegister_Validation(t *testing.T) {
	store := NewStore(newMockQuerier(), log.NewNop())
	ctx := context.Background()

	if err := store.Register(ctx, "", "u1", PlatformIOS); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("got %v, want ErrEmptyToken", err)
	}
	if err := store.Register(ctx, "tok", "", PlatformIOS); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("got %v, want ErrEmptyUserID", err)
	}
	if err := store.Register(ctx, "tok", "u1", "windows"); !errors.Is(err, ErrInvalidPlatform) {
		t.Errorf("got %v, want ErrInvalidPlatform", err)
	}
}

func TestUnregister(t *testing.T) {
	q := newMockQuerier()
	store := NewStore(q, log.NewNop())
	ctx := context.Background()

	if err := store.Register(ctx, "tok-1", "u1", PlatformAndroid); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := store.Unregister(ctx, "tok-1"); err != nil {
		t.Fatalf("Unregister() error: %v", err)
	}
	if len(q.tokens) != 0 {
		t.Errorf("token not removed: %+v", q.tokens)
	}

	// Unknown tokens are a no-op.
	if err := store.Unregister(ctx, "ghost"); err != nil {
		t.Errorf("Unregister(unknown) error: %v", err)
	}
	if err := store.Unregister(ctx, ""); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("got %v, want ErrEmptyToken", err)
	}
}
