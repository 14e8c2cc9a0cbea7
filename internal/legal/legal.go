// Package legal serves the embedded legal documents and records acceptances.
package legal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

//go:embed terms.md
var termsMarkdown string

//go:embed privacy.md
var privacyMarkdown string

// Document names accepted by the service.
const (
	DocumentTerms   = "terms"
	DocumentPrivacy = "privacy"
)

var (
	// ErrUnknownDocument is returned for a document outside the known set.
	ErrUnknownDocument = errors.New("unknown legal document")
	// ErrEmptyUserID is returned when no user id is supplied.
	ErrEmptyUserID = errors.New("user id is empty")
)

// Querier defines the database operations the service needs.
type Querier interface {
	UpsertLegalAcceptance(ctx context.Context, arg sqlc.UpsertLegalAcceptanceParams) error
}

// Service serves legal documents and records user acceptances.
type Service struct {
	queries Querier
	logger  log.Logger
}

// NewService creates the legal service.
func NewService(queries Querier, logger log.Logger) *Service {
	return &Service{queries: queries, logger: logger}
}

// Document returns the markdown body of a legal document.
func (s *Service) Document(name string) (string, error) {
	switch name {
	case DocumentTerms:
		return termsMarkdown, nil
	case DocumentPrivacy:
		return privacyMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDocument, name)
}

// Accept records that a user accepted a document. Re-accepting refreshes the
// stored timestamp.
func (s *Service) Accept(ctx context.Context, userID, document string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if document != DocumentTerms && document != DocumentPrivacy {
		return fmt.Errorf("%w: %q", ErrUnknownDocument, document)
	}

	if err := s.queries.UpsertLegalAcceptance(ctx, sqlc.UpsertLegalAcceptanceParams{
		UserID:   userID,
		Document: document,
	}); err != nil {
		return fmt.Errorf("record acceptance: %w", err)
	}

	s.logger.Info("legal document accepted", "user_id", userID, "document", document)
	return nil
}
