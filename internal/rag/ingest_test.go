package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/vecindex"
)

type mockUpserter struct {
	batches [][]vecindex.Record
	records map[string]vecindex.Record
}

func newMockUpserter() *mockUpserter {
	return &mockUpserter{records: make(map[string]vecindex.Record)}
}

func (m *mockUpserter) Upsert(_ context.Context, records []vecindex.Record) error {
	batch := make([]vecindex.Record, len(records))
	copy(batch, records)
	m.batches = append(m.batches, batch)
	for _, rec := range records {
		m.records[rec.ID] = rec
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestIngestPath_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "Some meaningful text to index.")

	index := newMockUpserter()
	ingester := NewIngester(&mockEmbedder{defaultVec: []float32{1, 0}}, index, 500, log.NewNop())

	result, err := ingester.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestPath() error: %v", err)
	}

	if result.FilesProcessed != 1 || result.ChunksIndexed != 1 {
		t.Errorf("result = %+v, want 1 file / 1 chunk", result)
	}
	for _, rec := range index.records {
		if rec.Content != "Some meaningful text to index." {
			t.Errorf("unexpected content: %q", rec.Content)
		}
		if rec.Metadata["source"] != "notes.md" {
			t.Errorf("source metadata = %q", rec.Metadata["source"])
		}
	}
}

func TestIngestPath_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "alpha text")
	writeFile(t, dir, "b.txt", "bravo text")
	writeFile(t, dir, "c.json", `{"k": "v"}`)
	writeFile(t, dir, "skip.png", "binary junk")

	index := newMockUpserter()
	ingester := NewIngester(&mockEmbedder{defaultVec: []float32{1, 0}}, index, 500, log.NewNop())

	result, err := ingester.IngestPath(context.Background(), dir)
	if err != nil {
		t.Fatalf("IngestPath() error: %v", err)
	}

	if result.FilesProcessed != 3 {
		t.Errorf("processed = %d, want 3", result.FilesProcessed)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("skipped = %d, want 1", result.FilesSkipped)
	}
	if result.ChunksIndexed != 3 {
		t.Errorf("chunks = %d, want 3", result.ChunksIndexed)
	}
}

func TestIngestPath_Batches(t *testing.T) {
	dir := t.TempDir()
	// 120 paragraphs well under chunk size each, so one chunk per paragraph.
	var sb strings.Builder
	for range 120 {
		sb.WriteString(strings.Repeat("w", 400))
		sb.WriteString("\n\n")
	}
	path := writeFile(t, dir, "big.txt", sb.String())

	index := newMockUpserter()
	ingester := NewIngester(&mockEmbedder{defaultVec: []float32{1, 0}}, index, 500, log.NewNop())

	result, err := ingester.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestPath() error: %v", err)
	}

	if result.ChunksIndexed != 120 {
		t.Fatalf("chunks = %d, want 120", result.ChunksIndexed)
	}
	// 120 chunks in batches of 50: 50 + 50 + 20.
	if len(index.batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(index.batches))
	}
	if len(index.batches[0]) != 50 || len(index.batches[2]) != 20 {
		t.Errorf("batch sizes = %d/%d/%d", len(index.batches[0]), len(index.batches[1]), len(index.batches[2]))
	}
}

func TestIngestPath_StableIDs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.md", "stable content")

	index := newMockUpserter()
	ingester := NewIngester(&mockEmbedder{defaultVec: []float32{1, 0}}, index, 500, log.NewNop())

	for range 2 {
		if _, err := ingester.IngestPath(context.Background(), path); err != nil {
			t.Fatalf("IngestPath() error: %v", err)
		}
	}
	// Re-ingesting the same file replaces records instead of growing the set.
	if len(index.records) != 1 {
		t.Errorf("expected 1 unique record after re-ingest, got %d", len(index.records))
	}
}

func TestIngestPath_UnsupportedSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "image.png", "junk")

	ingester := NewIngester(&mockEmbedder{defaultVec: []float32{1, 0}}, newMockUpserter(), 500, log.NewNop())

	result, err := ingester.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestPath() error: %v", err)
	}
	if result.FilesSkipped != 1 || result.FilesProcessed != 0 {
		t.Errorf("result = %+v, want skip only", result)
	}
}

func TestIngestPath_Missing(t *testing.T) {
	ingester := NewIngester(&mockEmbedder{defaultVec: []float32{1, 0}}, newMockUpserter(), 500, log.NewNop())

	if _, err := ingester.IngestPath(context.Background(), "/does/not/exist"); err == nil {
		t.Error("expected error for missing path")
	}
}
