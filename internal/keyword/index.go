// Package keyword provides exact-term chunk search backed by Bleve.
package keyword

import (
	"context"

	"github.com/hyperjump/kizami/internal/models"
)

// Index defines keyword search over the chunk corpus.
type Index interface {
	// IndexChunk adds or replaces a chunk in the index.
	IndexChunk(ctx context.Context, chunk *models.DocumentChunk) error
	// IndexChunks indexes a batch of chunks in one Bleve batch.
	IndexChunks(ctx context.Context, chunks []*models.DocumentChunk) error
	// Search returns up to limit chunk ids ranked by term relevance.
	// documentID narrows the search to one document when non-empty.
	Search(ctx context.Context, query string, limit int, documentID string) ([]*Result, error)
	// Delete removes a single chunk.
	Delete(ctx context.Context, chunkID string) error
	// DeleteDocument removes every chunk of a document.
	DeleteDocument(ctx context.Context, documentID string) error
	// Count returns the number of indexed chunks.
	Count() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ChunkID string
	Score   float64
}
