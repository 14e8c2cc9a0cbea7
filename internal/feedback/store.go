// Package feedback stores user-submitted feedback.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

var (
	// ErrInvalidType is returned for a feedback type outside the allowed set.
	ErrInvalidType = errors.New("invalid feedback type")
	// ErrEmptyMessage is returned when the feedback message is empty.
	ErrEmptyMessage = errors.New("feedback message is empty")
)

// Allowed feedback types.
const (
	TypeBug     = "bug"
	TypeFeature = "feature"
	TypeGeneral = "general"
)

// Entry is one stored piece of feedback.
type Entry struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	CreatedAt time.Time
}

// Querier defines the database operations the store needs.
type Querier interface {
	CreateFeedback(ctx context.Context, arg sqlc.CreateFeedbackParams) (sqlc.Feedback, error)
}

// Store is an insert-only feedback sink.
type Store struct {
	queries Querier
	logger  log.Logger
}

// NewStore creates a feedback store.
func NewStore(queries Querier, logger log.Logger) *Store {
	return &Store{queries: queries, logger: logger}
}

// Submit validates and stores one feedback entry. userID may be empty for
// anonymous feedback.
func (s *Store) Submit(ctx context.Context, feedbackType, message, userID string) (*Entry, error) {
	switch feedbackType {
	case TypeBug, TypeFeature, TypeGeneral:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, feedbackType)
	}
	if message == "" {
		return nil, ErrEmptyMessage
	}

	var uid *string
	if userID != "" {
		uid = &userID
	}
	row, err := s.queries.CreateFeedback(ctx, sqlc.CreateFeedbackParams{
		UserID:  uid,
		Type:    feedbackType,
		Message: message,
	})
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	entry := &Entry{
		ID:        uuid.UUID(row.ID.Bytes).String(),
		Type:      row.Type,
		Message:   row.Message,
		CreatedAt: row.CreatedAt.Time,
	}
	if row.UserID != nil {
		entry.UserID = *row.UserID
	}
	s.logger.Info("feedback received", "type", feedbackType, "anonymous", uid == nil)
	return entry, nil
}
