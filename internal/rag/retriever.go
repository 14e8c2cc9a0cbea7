// Package rag retrieves context for chat completions from the vector index
// and the per-user knowledge store.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kindredapp/kindred/internal/knowledge"
	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/vecindex"
)

const (
	// DefaultTopK bounds retrieval when the caller passes no limit.
	DefaultTopK = 5
	// DefaultKnowledgeThreshold is the minimum cosine similarity a knowledge
	// item must exceed, strictly, to be admitted as context.
	DefaultKnowledgeThreshold = 0.7
	// DefaultEmbedConcurrency caps parallel embedding calls while scoring
	// knowledge items.
	DefaultEmbedConcurrency = 4
)

// Embedder turns text into a vector. Satisfied by *ai.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index answers similarity queries. Satisfied by *vecindex.Store.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int, filter vecindex.Filter) ([]vecindex.Match, error)
}

// KnowledgeLister loads a user's stored facts. Satisfied by *knowledge.Store.
type KnowledgeLister interface {
	ListByUser(ctx context.Context, userID string) ([]knowledge.Item, error)
}

// Retriever combines index search with per-user knowledge augmentation.
type Retriever struct {
	embedder    Embedder
	index       Index
	knowledge   KnowledgeLister
	recorder    Recorder
	threshold   float64
	concurrency int
	defaultTopK int
	logger      log.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithThreshold overrides the knowledge similarity threshold.
func WithThreshold(threshold float64) Option {
	return func(r *Retriever) { r.threshold = threshold }
}

// WithEmbedConcurrency overrides the knowledge embedding fan-out limit.
func WithEmbedConcurrency(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDefaultTopK overrides the limit applied when a caller passes no
// positive topK.
func WithDefaultTopK(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.defaultTopK = n
		}
	}
}

// WithRecorder attaches a telemetry recorder used by RetrieveAndLog.
func WithRecorder(rec Recorder) Option {
	return func(r *Retriever) { r.recorder = rec }
}

// NewRetriever creates a retriever over the given embedder, index and
// knowledge store. knowledgeStore may be nil when no per-user augmentation
// is wanted.
func NewRetriever(embedder Embedder, index Index, knowledgeStore KnowledgeLister, logger log.Logger, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:    embedder,
		index:       index,
		knowledge:   knowledgeStore,
		threshold:   DefaultKnowledgeThreshold,
		concurrency: DefaultEmbedConcurrency,
		defaultTopK: DefaultTopK,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query (joined with any additional context), searches
// the vector index, and, when a user id is given, augments the result with
// that user's knowledge items scoring strictly above the threshold. Matches
// come back sorted best-first, at most topK of them.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, userID, additionalContext string) ([]vecindex.Match, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embedText := query
	if additionalContext != "" {
		embedText = query + " " + additionalContext
	}

	queryVec, err := r.embedder.Embed(ctx, embedText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, queryVec, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	if userID == "" || r.knowledge == nil {
		return matches, nil
	}

	knowledgeMatches, err := r.scoreKnowledge(ctx, userID, queryVec)
	if err != nil {
		return nil, err
	}

	merged := append(matches, knowledgeMatches...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}

	r.logger.Debug("retrieval complete",
		"index_matches", len(matches),
		"knowledge_matches", len(knowledgeMatches),
		"returned", len(merged))
	return merged, nil
}

// scoreKnowledge embeds every knowledge item of the user with bounded
// concurrency and keeps the ones whose similarity to the query vector
// strictly exceeds the threshold.
func (r *Retriever) scoreKnowledge(ctx context.Context, userID string, queryVec []float32) ([]vecindex.Match, error) {
	items, err := r.knowledge.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, r.concurrency)
	scores := make([]float64, len(items))

	for i, item := range items {
		wg.Add(1)
		go func(i int, content string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			vec, err := r.embedder.Embed(ctx, content)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embed knowledge item: %w", err)
				}
				mu.Unlock()
				return
			}
			scores[i] = CosineSimilarity(queryVec, vec)
		}(i, item.Content)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	var matches []vecindex.Match
	for i, item := range items {
		if scores[i] <= r.threshold {
			continue
		}
		metadata := map[string]string{"source": "knowledge"}
		if item.Title != nil {
			metadata["title"] = *item.Title
		}
		matches = append(matches, vecindex.Match{
			ID:       "knowledge:" + item.ID,
			Score:    scores[i],
			Content:  item.Content,
			Metadata: metadata,
		})
	}
	return matches, nil
}

// ContextString joins match contents into a prompt-injectable block.
func ContextString(matches []vecindex.Match) string {
	if len(matches) == 0 {
		return ""
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}
