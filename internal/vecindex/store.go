// Package vecindex implements the vector index client on PostgreSQL +
// pgvector. It supports idempotent upsert of embedding records and top-K
// nearest-neighbor queries with optional metadata filtering.
package vecindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

// DefaultTopK is used when a caller supplies a non-positive topK.
const DefaultTopK = 5

var (
	// ErrEmptyRecordID indicates an upsert record without an identifier.
	ErrEmptyRecordID = errors.New("record id is empty")

	// ErrDuplicateRecordID indicates two records in one upsert batch share an id.
	ErrDuplicateRecordID = errors.New("duplicate record id in batch")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index's configured dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Querier defines the database operations the store needs.
// Following Go best practices: interfaces are defined by the consumer,
// not the provider.
type Querier interface {
	UpsertDocument(ctx context.Context, arg sqlc.UpsertDocumentParams) error
	SearchDocuments(ctx context.Context, arg sqlc.SearchDocumentsParams) ([]sqlc.SearchDocumentsRow, error)
	SearchDocumentsFiltered(ctx context.Context, arg sqlc.SearchDocumentsFilteredParams) ([]sqlc.SearchDocumentsFilteredRow, error)
	CountDocuments(ctx context.Context) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Store is the vector index client.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries   Querier
	dimension int
	logger    log.Logger
}

// New creates a vector index store. dimension is the vector length the
// backing index is provisioned for; every upserted vector must match it.
func New(queries Querier, dimension int, logger log.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		queries:   queries,
		dimension: dimension,
		logger:    logger,
	}
}

// Upsert writes records to the index. Each record needs a unique id and a
// vector of the configured dimensionality. Re-upserting an existing id
// replaces the stored record in full, so repeated upserts are idempotent.
//
// No batching happens here; callers control batch sizes (see rag.Ingester).
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		if rec.ID == "" {
			return ErrEmptyRecordID
		}
		if _, dup := seen[rec.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateRecordID, rec.ID)
		}
		seen[rec.ID] = struct{}{}

		if len(rec.Vector) != s.dimension {
			return fmt.Errorf("%w: record %q has %d dimensions, index expects %d",
				ErrDimensionMismatch, rec.ID, len(rec.Vector), s.dimension)
		}
	}

	for _, rec := range records {
		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %q: %w", rec.ID, err)
		}

		embedding := pgvector.NewVector(rec.Vector)

		if err := s.queries.UpsertDocument(ctx, sqlc.UpsertDocumentParams{
			ID:        rec.ID,
			Content:   rec.Content,
			Embedding: &embedding,
			Metadata:  metadataJSON,
		}); err != nil {
			return fmt.Errorf("failed to upsert record %q: %w", rec.ID, err)
		}
	}

	s.logger.Debug("upserted records", "count", len(records))
	return nil
}

// Query returns the topK records nearest to the given vector, best-first in
// the index's native cosine-similarity order. A non-positive topK is coerced
// to DefaultTopK. An optional filter restricts results by metadata
// containment.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index expects %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	if topK <= 0 {
		s.logger.Debug("coercing non-positive topK to default", "topK", topK, "default", DefaultTopK)
		topK = DefaultTopK
	}

	queryEmbedding := pgvector.NewVector(vector)

	// filterJSON is always produced by json.Marshal and bound as a query
	// parameter; the JSONB @> operator never sees raw user input.
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", err)
		}

		rows, err := s.queries.SearchDocumentsFiltered(ctx, sqlc.SearchDocumentsFilteredParams{
			QueryEmbedding: &queryEmbedding,
			FilterMetadata: filterJSON,
			ResultLimit:    int32(topK), // #nosec G115 -- topK validated positive above
		})
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}

		matches := make([]Match, 0, len(rows))
		for _, row := range rows {
			matches = append(matches, Match{
				ID:       row.ID,
				Score:    row.Similarity,
				Content:  row.Content,
				Metadata: s.parseMetadata(row.ID, row.Metadata),
			})
		}
		return matches, nil
	}

	rows, err := s.queries.SearchDocuments(ctx, sqlc.SearchDocumentsParams{
		QueryEmbedding: &queryEmbedding,
		ResultLimit:    int32(topK), // #nosec G115 -- topK validated positive above
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, Match{
			ID:       row.ID,
			Score:    row.Similarity,
			Content:  row.Content,
			Metadata: s.parseMetadata(row.ID, row.Metadata),
		})
	}
	return matches, nil
}

// Count returns the total number of records in the index.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return int(count), nil
}

// Delete removes a record from the index.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.queries.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete record %q: %w", id, err)
	}

	s.logger.Debug("deleted record", "id", id)
	return nil
}

// parseMetadata unmarshals a stored JSONB metadata blob, falling back to an
// empty map on malformed data so one bad row never fails a whole query.
func (s *Store) parseMetadata(id string, raw []byte) map[string]string {
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "record_id", id, "error", err)
		return make(map[string]string)
	}
	return metadata
}
