// Package vector provides the chunk vector store and similarity search.
package vector

import (
	"context"
	"strings"

	"github.com/hyperjump/kizami/internal/models"
)

// Filters narrows queries over the stored chunk corpus. Zero values match
// everything. HeadingPathContains matches by substring against the joined
// heading path.
type Filters struct {
	DocumentID          string
	ChunkType           models.ChunkType
	HierarchyLevel      *int
	HeadingPathContains string
}

// Match reports whether chunk passes all set filters.
func (f Filters) Match(chunk *models.DocumentChunk) bool {
	if chunk == nil {
		return false
	}
	if f.DocumentID != "" && chunk.DocumentID != f.DocumentID {
		return false
	}
	if f.ChunkType != "" && chunk.Type != f.ChunkType {
		return false
	}
	if f.HierarchyLevel != nil && chunk.HierarchyLevel != *f.HierarchyLevel {
		return false
	}
	if f.HeadingPathContains != "" {
		joined := strings.ToLower(strings.Join(chunk.HeadingPath, " > "))
		if !strings.Contains(joined, strings.ToLower(f.HeadingPathContains)) {
			return false
		}
	}
	return true
}

// QueryMatch is a single similarity-search hit.
type QueryMatch struct {
	Chunk *models.DocumentChunk
	Score float64 // cosine similarity, 0-1 for normalized vectors
}

// Store holds the embedded chunk corpus and serves filtered similarity
// queries and metadata lookups.
type Store interface {
	Upsert(ctx context.Context, chunk *models.DocumentChunk, vec []float32) error
	Query(ctx context.Context, vec []float32, topK int, f Filters) ([]*QueryMatch, error)
	GetByFilter(ctx context.Context, f Filters) ([]*models.DocumentChunk, error)
	Get(ctx context.Context, id string) (*models.DocumentChunk, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}
