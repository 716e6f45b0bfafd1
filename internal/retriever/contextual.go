package retriever

import (
	"context"
	"sort"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/vector"
)

// contextual runs semantic search and attaches a window of adjacent chunks
// from the same document to each hit.
func (r *Retriever) contextual(ctx context.Context, query string, opts models.RetrievalOptions) ([]*models.RetrievedChunk, error) {
	hits, err := r.semantic(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	byDoc := make(map[string][]*models.DocumentChunk)
	for _, rc := range hits {
		docID := rc.Chunk.DocumentID
		siblings, ok := byDoc[docID]
		if !ok {
			siblings, err = r.store.GetByFilter(ctx, vector.Filters{DocumentID: docID})
			if err != nil {
				return nil, err
			}
			sort.Slice(siblings, func(i, j int) bool { return siblings[i].Position < siblings[j].Position })
			byDoc[docID] = siblings
		}
		rc.Context = window(siblings, rc.Chunk.ID, opts.ContextWindow)
		rc.MatchType = "semantic"
	}
	return hits, nil
}

// window returns up to n chunks on each side of the chunk with the given id.
// The chunk itself is excluded.
func window(ordered []*models.DocumentChunk, id string, n int) []*models.DocumentChunk {
	at := -1
	for i, c := range ordered {
		if c.ID == id {
			at = i
			break
		}
	}
	if at < 0 {
		return nil
	}
	lo := at - n
	if lo < 0 {
		lo = 0
	}
	hi := at + n
	if hi > len(ordered)-1 {
		hi = len(ordered) - 1
	}
	out := make([]*models.DocumentChunk, 0, hi-lo)
	for i := lo; i <= hi; i++ {
		if i == at {
			continue
		}
		out = append(out, ordered[i])
	}
	return out
}
