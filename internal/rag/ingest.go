package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/vecindex"
)

// upsertBatchSize is how many records go to the index per call.
const upsertBatchSize = 50

// Upserter writes records into the vector index. Satisfied by *vecindex.Store.
type Upserter interface {
	Upsert(ctx context.Context, records []vecindex.Record) error
}

// IndexResult summarizes an ingestion run.
type IndexResult struct {
	FilesProcessed int
	FilesSkipped   int
	ChunksIndexed  int
}

// Ingester chunks documents, embeds them, and loads them into the index.
type Ingester struct {
	embedder  Embedder
	index     Upserter
	chunkSize int
	logger    log.Logger
}

// NewIngester creates an ingester. chunkSize <= 0 uses DefaultChunkSize.
func NewIngester(embedder Embedder, index Upserter, chunkSize int, logger log.Logger) *Ingester {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Ingester{embedder: embedder, index: index, chunkSize: chunkSize, logger: logger}
}

// IngestPath ingests a single file or every supported file under a
// directory. Supported extensions are .md, .txt and .json; everything else
// is counted as skipped.
func (in *Ingester) IngestPath(ctx context.Context, path string) (*IndexResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	result := &IndexResult{}
	if !info.IsDir() {
		if !supportedFile(path) {
			result.FilesSkipped++
			return result, nil
		}
		if err := in.ingestFile(ctx, path, result); err != nil {
			return result, err
		}
		return result, nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !supportedFile(p) {
			result.FilesSkipped++
			return nil
		}
		return in.ingestFile(ctx, p, result)
	})
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", path, err)
	}
	return result, nil
}

func (in *Ingester) ingestFile(ctx context.Context, path string, result *IndexResult) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	chunks := ChunkText(string(data), in.chunkSize)
	if len(chunks) == 0 {
		result.FilesSkipped++
		return nil
	}

	base := filepath.Base(path)
	batch := make([]vecindex.Record, 0, upsertBatchSize)
	for i, chunk := range chunks {
		vec, err := in.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embed chunk %d of %s: %w", i, path, err)
		}
		batch = append(batch, vecindex.Record{
			ID:      chunkID(path, i),
			Content: chunk,
			Vector:  vec,
			Metadata: map[string]string{
				"source": base,
				"chunk":  strconv.Itoa(i),
			},
		})
		if len(batch) == upsertBatchSize {
			if err := in.index.Upsert(ctx, batch); err != nil {
				return fmt.Errorf("upsert batch for %s: %w", path, err)
			}
			result.ChunksIndexed += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := in.index.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch for %s: %w", path, err)
		}
		result.ChunksIndexed += len(batch)
	}

	result.FilesProcessed++
	in.logger.Info("file ingested", "path", path, "chunks", len(chunks))
	return nil
}

// chunkID derives a stable id from the file path and chunk index so
// re-ingesting a file replaces its chunks instead of duplicating them.
func chunkID(path string, index int) string {
	sum := sha256.Sum256([]byte(path + "#" + strconv.Itoa(index)))
	return hex.EncodeToString(sum[:16])
}

func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt", ".json":
		return true
	}
	return false
}
