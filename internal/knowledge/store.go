// Package knowledge persists per-user facts that personalize chat replies.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

var (
	// ErrNotFound is returned when a knowledge item does not exist.
	ErrNotFound = errors.New("knowledge item not found")
	// ErrEmptyContent is returned when an item has no content.
	ErrEmptyContent = errors.New("knowledge item content is empty")
	// ErrEmptyUserID is returned when no user id is supplied.
	ErrEmptyUserID = errors.New("user id is empty")
)

// Item is a single stored fact about a user.
type Item struct {
	ID        string
	UserID    string
	Title     *string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Querier defines the database operations the store needs.
type Querier interface {
	CreateKnowledgeItem(ctx context.Context, arg sqlc.CreateKnowledgeItemParams) (sqlc.KnowledgeItem, error)
	GetKnowledgeItem(ctx context.Context, id pgtype.UUID) (sqlc.KnowledgeItem, error)
	ListKnowledgeItemsByUser(ctx context.Context, userID string) ([]sqlc.KnowledgeItem, error)
	UpdateKnowledgeItem(ctx context.Context, arg sqlc.UpdateKnowledgeItemParams) (sqlc.KnowledgeItem, error)
	DeleteKnowledgeItem(ctx context.Context, id pgtype.UUID) error
}

// Store provides CRUD access to knowledge items.
type Store struct {
	queries Querier
	logger  log.Logger
}

// NewStore creates a knowledge store.
func NewStore(queries Querier, logger log.Logger) *Store {
	return &Store{queries: queries, logger: logger}
}

// Create stores a new item for a user.
func (s *Store) Create(ctx context.Context, userID string, title *string, content string) (*Item, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	row, err := s.queries.CreateKnowledgeItem(ctx, sqlc.CreateKnowledgeItemParams{
		UserID:  userID,
		Title:   title,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("create knowledge item: %w", err)
	}

	item := toItem(row)
	s.logger.Debug("knowledge item created", "id", item.ID, "user_id", userID)
	return &item, nil
}

// Get loads a single item by id.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row, err := s.queries.GetKnowledgeItem(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get knowledge item: %w", err)
	}

	item := toItem(row)
	return &item, nil
}

// ListByUser loads every item belonging to a user, oldest first.
// The full set is loaded in one call; per-user collections stay small.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	rows, err := s.queries.ListKnowledgeItemsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge items: %w", err)
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = toItem(row)
	}
	return items, nil
}

// Update replaces an item's title and content.
func (s *Store) Update(ctx context.Context, id string, title *string, content string) (*Item, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row, err := s.queries.UpdateKnowledgeItem(ctx, sqlc.UpdateKnowledgeItemParams{
		Title:   title,
		Content: content,
		ID:      pgID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update knowledge item: %w", err)
	}

	item := toItem(row)
	return &item, nil
}

// Delete removes an item.
func (s *Store) Delete(ctx context.Context, id string) error {
	pgID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.queries.DeleteKnowledgeItem(ctx, pgID); err != nil {
		return fmt.Errorf("delete knowledge item: %w", err)
	}
	return nil
}

func toItem(row sqlc.KnowledgeItem) Item {
	return Item{
		ID:        uuid.UUID(row.ID.Bytes).String(),
		UserID:    row.UserID,
		Title:     row.Title,
		Content:   row.Content,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func parseID(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
