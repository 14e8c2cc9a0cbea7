package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

// telemetryDB starts the transactions Record runs in. Satisfied by
// *pgxpool.Pool.
type telemetryDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRecorder writes retrieval telemetry in a single transaction: one
// rag_operations row plus one retrieved_documents row per match.
type PostgresRecorder struct {
	pool   telemetryDB
	logger log.Logger
}

// NewPostgresRecorder creates a telemetry recorder over the pool.
func NewPostgresRecorder(pool telemetryDB, logger log.Logger) *PostgresRecorder {
	return &PostgresRecorder{pool: pool, logger: logger}
}

// Record implements Recorder. Either the operation and all its documents
// land, or nothing does.
func (r *PostgresRecorder) Record(ctx context.Context, rec OperationRecord) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin telemetry tx: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := sqlc.New(tx)

	var userID *string
	if rec.UserID != "" {
		userID = &rec.UserID
	}

	op, err := qtx.CreateRagOperation(ctx, sqlc.CreateRagOperationParams{
		Query:          rec.Query,
		UserID:         userID,
		ConversationID: optionalUUID(rec.ConversationID),
		MessageID:      optionalUUID(rec.MessageID),
		Source:         rec.Source,
		DurationMs:     rec.DurationMs,
	})
	if err != nil {
		return "", fmt.Errorf("insert rag operation: %w", err)
	}

	for _, m := range rec.Matches {
		metadata, err := json.Marshal(m.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshal match metadata: %w", err)
		}
		var source *string
		if s, ok := m.Metadata["source"]; ok {
			source = &s
		}
		if err := qtx.CreateRetrievedDocument(ctx, sqlc.CreateRetrievedDocumentParams{
			OperationID: op.ID,
			DocumentID:  m.ID,
			Score:       m.Score,
			Content:     m.Content,
			Source:      source,
			Metadata:    metadata,
		}); err != nil {
			return "", fmt.Errorf("insert retrieved document: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit telemetry tx: %w", err)
	}
	return uuid.UUID(op.ID.Bytes).String(), nil
}

func optionalUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}
