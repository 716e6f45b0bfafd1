// Package retriever serves retrieval queries over the chunk corpus with
// pluggable strategies: semantic, hierarchical, hybrid, contextual, keyword.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/embedding"
	"github.com/hyperjump/kizami/internal/keyword"
	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/vector"
)

// Retriever answers queries against the vector store and keyword index.
type Retriever struct {
	store        vector.Store
	keywordIndex keyword.Index
	embedder     embedding.Embedder
	logger       *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for retrieval diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// New creates a Retriever from its collaborators.
func New(store vector.Store, keywordIndex keyword.Index, embedder embedding.Embedder, opts ...Option) *Retriever {
	r := &Retriever{store: store, keywordIndex: keywordIndex, embedder: embedder}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs one query with the given strategy. An empty query or unknown
// strategy is rejected; anything that goes wrong against the backing stores
// degrades to an empty valid response instead of failing the call.
func (r *Retriever) Retrieve(ctx context.Context, query string, strategy models.Strategy, opts models.RetrievalOptions) (*models.RetrievalResponse, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if err := models.ValidStrategy(strategy); err != nil {
		return nil, err
	}
	opts.Normalize()

	var (
		chunks []*models.RetrievedChunk
		err    error
	)
	switch strategy {
	case models.StrategySemantic:
		chunks, err = r.semantic(ctx, query, opts)
	case models.StrategyHierarchical:
		chunks, err = r.hierarchical(ctx, query, opts)
	case models.StrategyHybrid:
		chunks, err = r.hybrid(ctx, query, opts)
	case models.StrategyContextual:
		chunks, err = r.contextual(ctx, query, opts)
	case models.StrategyKeyword:
		chunks, err = r.keyword(ctx, query, opts)
	}
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("retrieval degraded to empty result",
				zap.String("strategy", string(strategy)), zap.Error(err))
		}
		chunks = nil
	}

	chunks = dedupe(chunks)
	if len(chunks) > opts.Limit {
		chunks = chunks[:opts.Limit]
	}
	return &models.RetrievalResponse{
		Chunks:         chunks,
		TotalFound:     len(chunks),
		Strategy:       strategy,
		ProcessingTime: time.Since(start).Milliseconds(),
		Metadata:       aggregate(chunks),
		Query:          query,
	}, nil
}

// baseFilters maps request options onto store filters.
func baseFilters(opts models.RetrievalOptions) vector.Filters {
	return vector.Filters{
		DocumentID:     opts.DocumentID,
		ChunkType:      opts.ChunkType,
		HierarchyLevel: opts.HierarchyLevel,
	}
}

// embedQuery returns the query vector. The batch client already degrades to
// its deterministic fallback, so an error here means no embedder at all.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}
