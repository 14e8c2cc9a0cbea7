package rag

import (
	"context"
	"time"

	"github.com/kindredapp/kindred/internal/vecindex"
)

// OperationRecord captures one retrieval for telemetry.
type OperationRecord struct {
	Query          string
	UserID         string
	ConversationID string
	MessageID      string
	Source         string
	DurationMs     int64
	Matches        []vecindex.Match
}

// Recorder persists retrieval telemetry. Satisfied by *PostgresRecorder.
type Recorder interface {
	Record(ctx context.Context, rec OperationRecord) (operationID string, err error)
}

// LogParams describes a logged retrieval request.
type LogParams struct {
	Query             string
	TopK              int
	UserID            string
	AdditionalContext string
	ConversationID    string
	MessageID         string
	Source            string
}

// LoggedResult is the outcome of a logged retrieval.
type LoggedResult struct {
	Matches     []vecindex.Match
	Context     string
	OperationID string
	DurationMs  int64
}

// RetrieveAndLog runs Retrieve, measures it, and records the operation with
// every returned match through the configured recorder. A recording failure
// is logged and swallowed: telemetry must never break retrieval. Retrieval
// failures still propagate.
func (r *Retriever) RetrieveAndLog(ctx context.Context, p LogParams) (*LoggedResult, error) {
	start := time.Now()

	matches, err := r.Retrieve(ctx, p.Query, p.TopK, p.UserID, p.AdditionalContext)
	if err != nil {
		return nil, err
	}
	durationMs := time.Since(start).Milliseconds()

	result := &LoggedResult{
		Matches:    matches,
		Context:    ContextString(matches),
		DurationMs: durationMs,
	}

	if r.recorder == nil {
		return result, nil
	}

	source := p.Source
	if source == "" {
		source = "chat"
	}
	opID, err := r.recorder.Record(ctx, OperationRecord{
		Query:          p.Query,
		UserID:         p.UserID,
		ConversationID: p.ConversationID,
		MessageID:      p.MessageID,
		Source:         source,
		DurationMs:     durationMs,
		Matches:        matches,
	})
	if err != nil {
		r.logger.Error("recording retrieval failed", "error", err, "query", p.Query)
		return result, nil
	}
	result.OperationID = opID
	return result, nil
}
