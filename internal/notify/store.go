// Package notify manages push notification token registration.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

var (
	// ErrEmptyToken is returned when no token is supplied.
	ErrEmptyToken = errors.New("push token is empty")
	// ErrEmptyUserID is returned when no user id is supplied.
	ErrEmptyUserID = errors.New("user id is empty")
	// ErrInvalidPlatform is returned for a platform outside the known set.
	ErrInvalidPlatform = errors.New("invalid platform")
)

// Supported platforms, mirroring the push_tokens CHECK constraint.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// Querier defines the database operations the store needs.
type Querier interface {
	UpsertPushToken(ctx context.Context, arg sqlc.UpsertPushTokenParams) error
	DeletePushToken(ctx context.Context, token string) error
}

// Store registers and removes device push tokens.
type Store struct {
	queries Querier
	logger  log.Logger
}

// NewStore creates a push token store.
func NewStore(queries Querier, logger log.Logger) *Store {
	return &Store{queries: queries, logger: logger}
}

// Register upserts a device token. Re-registering an existing token moves it
// to the given user.
func (s *Store) Register(ctx context.Context, token, userID, platform string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if userID == "" {
		return ErrEmptyUserID
	}
	if platform != PlatformIOS && platform != PlatformAndroid && platform != PlatformWeb {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, platform)
	}

	if err := s.queries.UpsertPushToken(ctx, sqlc.UpsertPushTokenParams{
		Token:    token,
		UserID:   userID,
		Platform: platform,
	}); err != nil {
		return fmt.Errorf("register push token: %w", err)
	}

	s.logger.Debug("push token registered", "user_id", userID, "platform", platform)
	return nil
}

// Unregister removes a device token. Removing an unknown token is a no-op.
func (s *Store) Unregister(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.queries.DeletePushToken(ctx, token); err != nil {
		return fmt.Errorf("unregister push token: %w", err)
	}
	return nil
}
