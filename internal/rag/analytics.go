package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

// ErrOperationNotFound is returned when a rag operation does not exist.
var ErrOperationNotFound = errors.New("rag operation not found")

const recentOperationsLimit = 20

// analyticsDB is the raw query surface Analytics needs. Satisfied by
// *pgxpool.Pool.
type analyticsDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// telemetryQuerier reads recorded operations. Satisfied by *sqlc.Queries.
type telemetryQuerier interface {
	GetRagOperation(ctx context.Context, id pgtype.UUID) (sqlc.RagOperation, error)
	ListRetrievedDocuments(ctx context.Context, operationID pgtype.UUID) ([]sqlc.RetrievedDocument, error)
}

// Summary aggregates retrieval telemetry, optionally scoped to one user.
type Summary struct {
	TotalOperations int64              `json:"totalOperations"`
	AvgDurationMs   float64            `json:"avgDurationMs"`
	AvgDocuments    float64            `json:"avgDocuments"`
	BySource        map[string]int64   `json:"bySource"`
	Recent          []OperationSummary `json:"recent"`
}

// OperationSummary is one row of the recent-operations list.
type OperationSummary struct {
	ID            string    `json:"id"`
	Query         string    `json:"query"`
	Source        string    `json:"source"`
	DurationMs    int64     `json:"durationMs"`
	DocumentCount int64     `json:"documentCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// OperationDetail is one operation with everything it retrieved.
type OperationDetail struct {
	ID         string         `json:"id"`
	Query      string         `json:"query"`
	UserID     string         `json:"userId,omitempty"`
	Source     string         `json:"source"`
	DurationMs int64          `json:"durationMs"`
	CreatedAt  time.Time      `json:"createdAt"`
	Documents  []RetrievedDoc `json:"documents"`
}

// RetrievedDoc is one document returned by a recorded operation.
type RetrievedDoc struct {
	DocumentID string            `json:"documentId"`
	Score      float64           `json:"score"`
	Content    string            `json:"content"`
	Source     string            `json:"source,omitempty"`
	Metadata   map[string]string `json:"metadata"`
}

// Analytics answers aggregate questions about recorded retrievals.
// Aggregations run as raw parameterized SQL; single-operation reads go
// through the generated queries.
type Analytics struct {
	db      analyticsDB
	queries telemetryQuerier
	logger  log.Logger
}

// NewAnalytics creates an analytics reader.
func NewAnalytics(db analyticsDB, queries telemetryQuerier, logger log.Logger) *Analytics {
	return &Analytics{db: db, queries: queries, logger: logger}
}

// UserSummary aggregates telemetry. An empty userID covers all users.
func (a *Analytics) UserSummary(ctx context.Context, userID string) (*Summary, error) {
	summary := &Summary{BySource: make(map[string]int64)}

	err := a.db.QueryRow(ctx, `
		SELECT count(*),
		       coalesce(avg(o.duration_ms), 0),
		       coalesce(avg(d.doc_count), 0)
		FROM rag_operations o
		LEFT JOIN (
			SELECT operation_id, count(*) AS doc_count
			FROM retrieved_documents
			GROUP BY operation_id
		) d ON d.operation_id = o.id
		WHERE $1 = '' OR o.user_id = $1`, userID).
		Scan(&summary.TotalOperations, &summary.AvgDurationMs, &summary.AvgDocuments)
	if err != nil {
		return nil, fmt.Errorf("aggregate operations: %w", err)
	}

	rows, err := a.db.Query(ctx, `
		SELECT source, count(*)
		FROM rag_operations
		WHERE $1 = '' OR user_id = $1
		GROUP BY source`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		summary.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent, err := a.db.Query(ctx, `
		SELECT o.id, o.query, o.source, o.duration_ms, o.created_at,
		       (SELECT count(*) FROM retrieved_documents WHERE operation_id = o.id)
		FROM rag_operations o
		WHERE $1 = '' OR o.user_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2`, userID, recentOperationsLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent operations: %w", err)
	}
	defer recent.Close()
	for recent.Next() {
		var (
			op        OperationSummary
			id        pgtype.UUID
			createdAt pgtype.Timestamptz
		)
		if err := recent.Scan(&id, &op.Query, &op.Source, &op.DurationMs, &createdAt, &op.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan recent row: %w", err)
		}
		op.ID = uuid.UUID(id.Bytes).String()
		op.CreatedAt = createdAt.Time
		summary.Recent = append(summary.Recent, op)
	}
	if err := recent.Err(); err != nil {
		return nil, err
	}

	return summary, nil
}

// Operation loads one recorded operation with its retrieved documents.
func (a *Analytics) Operation(ctx context.Context, operationID string) (*OperationDetail, error) {
	parsed, err := uuid.Parse(operationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	pgID := pgtype.UUID{Bytes: parsed, Valid: true}

	op, err := a.queries.GetRagOperation(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("get rag operation: %w", err)
	}

	docs, err := a.queries.ListRetrievedDocuments(ctx, pgID)
	if err != nil {
		return nil, fmt.Errorf("list retrieved documents: %w", err)
	}

	detail := &OperationDetail{
		ID:         operationID,
		Query:      op.Query,
		Source:     op.Source,
		DurationMs: op.DurationMs,
		CreatedAt:  op.CreatedAt.Time,
	}
	if op.UserID != nil {
		detail.UserID = *op.UserID
	}
	detail.Documents = make([]RetrievedDoc, 0, len(docs))
	for _, d := range docs {
		doc := RetrievedDoc{
			DocumentID: d.DocumentID,
			Score:      d.Score,
			Content:    d.Content,
			Metadata:   map[string]string{},
		}
		if d.Source != nil {
			doc.Source = *d.Source
		}
		if len(d.Metadata) > 0 {
			if err := json.Unmarshal(d.Metadata, &doc.Metadata); err != nil {
				a.logger.Warn("retrieved document metadata unreadable", "document_id", d.DocumentID, "error", err)
			}
		}
		detail.Documents = append(detail.Documents, doc)
	}
	return detail, nil
}
