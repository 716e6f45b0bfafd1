package retriever

import (
	"context"
	"fmt"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/vector"
)

// RelatedChunks returns chunks related to the given one: structural neighbors
// (previous/next, siblings, parent, children) plus semantic nearest
// neighbors. The chunk itself is excluded and duplicates are collapsed, with
// the structural relation winning.
func (r *Retriever) RelatedChunks(ctx context.Context, chunkID string, limit int) ([]*models.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 10
	}
	chunk, err := r.store.Get(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	seen := map[string]bool{chunkID: true}
	var out []*models.RetrievedChunk
	addStructural := func(ids ...string) {
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			related, err := r.store.Get(ctx, id)
			if err != nil {
				continue // stale relationship id, skip
			}
			seen[id] = true
			out = append(out, &models.RetrievedChunk{Chunk: related, MatchType: "structure"})
		}
	}

	addStructural(chunk.PrevChunkID, chunk.NextChunkID)
	addStructural(chunk.SiblingIDs...)
	addStructural(chunk.ChildIDs...)
	if parent := r.findParent(ctx, chunk); parent != "" {
		addStructural(parent)
	}

	if vec, err := r.embedder.Embed(ctx, chunk.Content); err == nil {
		matches, err := r.store.Query(ctx, vec, limit, vector.Filters{})
		if err == nil {
			for _, m := range matches {
				if seen[m.Chunk.ID] {
					continue
				}
				seen[m.Chunk.ID] = true
				out = append(out, &models.RetrievedChunk{
					Chunk:      m.Chunk,
					Similarity: m.Score,
					MatchType:  "semantic",
				})
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// findParent locates the chunk in the same document that lists this chunk as
// a child.
func (r *Retriever) findParent(ctx context.Context, chunk *models.DocumentChunk) string {
	siblings, err := r.store.GetByFilter(ctx, vector.Filters{DocumentID: chunk.DocumentID})
	if err != nil {
		return ""
	}
	for _, c := range siblings {
		for _, childID := range c.ChildIDs {
			if childID == chunk.ID {
				return c.ID
			}
		}
	}
	return ""
}
