package vecindex

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/sqlc"
)

const testDimension = 3

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	upserted       map[string]sqlc.UpsertDocumentParams
	upsertOrder    []string
	upsertErr      error
	searchRows     []sqlc.SearchDocumentsRow
	searchErr      error
	filteredRows   []sqlc.SearchDocumentsFilteredRow
	lastLimit      int32
	lastFilterJSON []byte
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{upserted: make(map[string]sqlc.UpsertDocumentParams)}
}

func (m *mockQuerier) UpsertDocument(_ context.Context, arg sqlc.UpsertDocumentParams) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if _, exists := m.upserted[arg.ID]; !exists {
		m.upsertOrder = append(m.upsertOrder, arg.ID)
	}
	m.upserted[arg.ID] = arg
	return nil
}

func (m *mockQuerier) SearchDocuments(_ context.Context, arg sqlc.SearchDocumentsParams) ([]sqlc.SearchDocumentsRow, error) {
	m.lastLimit = arg.ResultLimit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchRows, nil
}

func (m *mockQuerier) SearchDocumentsFiltered(_ context.Context, arg sqlc.SearchDocumentsFilteredParams) ([]sqlc.SearchDocumentsFilteredRow, error) {
	m.lastLimit = arg.ResultLimit
	m.lastFilterJSON = arg.FilterMetadata
	return m.filteredRows, nil
}

func (m *mockQuerier) CountDocuments(_ context.Context) (int64, error) {
	return int64(len(m.upserted)), nil
}

func (m *mockQuerier) DeleteDocument(_ context.Context, id string) error {
	delete(m.upserted, id)
	return nil
}

func TestUpsert(t *testing.T) {
	q := newMockQuerier()
	store := New(q, testDimension, log.NewNop())

	records := []Record{
		{ID: "doc-1", Content: "first", Vector: []float32{1, 0, 0}, Metadata: map[string]string{"source": "file"}},
		{ID: "doc-2", Content: "second", Vector: []float32{0, 1, 0}},
	}

	if err := store.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	if len(q.upserted) != 2 {
		t.Fatalf("expected 2 upserted records, got %d", len(q.upserted))
	}

	var metadata map[string]string
	if err := json.Unmarshal(q.upserted["doc-1"].Metadata, &metadata); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	if metadata["source"] != "file" {
		t.Errorf("metadata source = %q, want file", metadata["source"])
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	q := newMockQuerier()
	store := New(q, testDimension, log.NewNop())

	rec := []Record{{ID: "doc-1", Content: "text", Vector: []float32{1, 0, 0}}}

	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("first Upsert() error: %v", err)
	}
	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("second Upsert() error: %v", err)
	}

	// Same id twice must not create a second record.
	if len(q.upserted) != 1 {
		t.Errorf("expected 1 record after double upsert, got %d", len(q.upserted))
	}
}

func TestUpsert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		wantErr error
	}{
		{
			name:    "empty id",
			records: []Record{{Vector: []float32{1, 0, 0}}},
			wantErr: ErrEmptyRecordID,
		},
		{
			name: "duplicate id in batch",
			records: []Record{
				{ID: "a", Vector: []float32{1, 0, 0}},
				{ID: "a", Vector: []float32{0, 1, 0}},
			},
			wantErr: ErrDuplicateRecordID,
		},
		{
			name:    "wrong dimension",
			records: []Record{{ID: "a", Vector: []float32{1, 0}}},
			wantErr: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newMockQuerier()
			store := New(q, testDimension, log.NewNop())

			err := store.Upsert(context.Background(), tt.records)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upsert() = %v, want %v", err, tt.wantErr)
			}
			if len(q.upserted) != 0 {
				t.Errorf("validation failure must not write records, wrote %d", len(q.upserted))
			}
		})
	}
}

func TestQuery(t *testing.T) {
	q := newMockQuerier()
	q.searchRows = []sqlc.SearchDocumentsRow{
		{ID: "doc-1", Content: "best", Metadata: []byte(`{"source":"file"}`), Similarity: 0.91},
		{ID: "doc-2", Content: "second", Metadata: []byte(`{}`), Similarity: 0.72},
	}
	store := New(q, testDimension, log.NewNop())

	matches, err := store.Query(context.Background(), []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "doc-1" || matches[0].Score != 0.91 {
		t.Errorf("first match = %+v, want doc-1 @0.91", matches[0])
	}
	if matches[0].Metadata["source"] != "file" {
		t.Errorf("metadata not propagated: %+v", matches[0].Metadata)
	}
}

func TestQuery_CoercesTopK(t *testing.T) {
	q := newMockQuerier()
	store := New(q, testDimension, log.NewNop())

	for _, topK := range []int{0, -3} {
		if _, err := store.Query(context.Background(), []float32{1, 0, 0}, topK, nil); err != nil {
			t.Fatalf("Query(topK=%d) error: %v", topK, err)
		}
		if q.lastLimit != DefaultTopK {
			t.Errorf("topK=%d: limit = %d, want default %d", topK, q.lastLimit, DefaultTopK)
		}
	}
}

func TestQuery_Filtered(t *testing.T) {
	q := newMockQuerier()
	q.filteredRows = []sqlc.SearchDocumentsFilteredRow{
		{ID: "doc-9", Content: "filtered", Metadata: []byte(`{"user_id":"u1"}`), Similarity: 0.8},
	}
	store := New(q, testDimension, log.NewNop())

	matches, err := store.Query(context.Background(), []float32{1, 0, 0}, 5, Filter{"user_id": "u1"})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	if len(matches) != 1 || matches[0].ID != "doc-9" {
		t.Fatalf("unexpected matches: %+v", matches)
	}

	var filter map[string]string
	if err := json.Unmarshal(q.lastFilterJSON, &filter); err != nil {
		t.Fatalf("filter not valid JSON: %v", err)
	}
	if filter["user_id"] != "u1" {
		t.Errorf("filter = %+v, want user_id=u1", filter)
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	store := New(newMockQuerier(), testDimension, log.NewNop())

	_, err := store.Query(context.Background(), []float32{1, 0}, 5, nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestQuery_MalformedMetadata(t *testing.T) {
	q := newMockQuerier()
	q.searchRows = []sqlc.SearchDocumentsRow{
		{ID: "doc-1", Content: "ok", Metadata: []byte(`not-json`), Similarity: 0.5},
	}
	store := New(q, testDimension, log.NewNop())

	matches, err := store.Query(context.Background(), []float32{1, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	// Malformed metadata degrades to an empty map, never an error.
	if matches[0].Metadata == nil || len(matches[0].Metadata) != 0 {
		t.Errorf("expected empty metadata map, got %+v", matches[0].Metadata)
	}
}

func TestCountAndDelete(t *testing.T) {
	q := newMockQuerier()
	store := New(q, testDimension, log.NewNop())

	records := []Record{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{0, 1, 0}},
	}
	if err := store.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	if err := store.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	count, err = store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() after delete error: %v", err)
	}
	if count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}
}
