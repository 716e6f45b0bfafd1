package retriever

import (
	"context"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/vector"
)

// Candidate pools are larger than the requested limit so post-filtering does
// not starve the result set.
const candidateMultiplier = 3

// semantic runs a plain similarity search over the chunk corpus.
func (r *Retriever) semantic(ctx context.Context, query string, opts models.RetrievalOptions) ([]*models.RetrievedChunk, error) {
	return r.semanticFiltered(ctx, query, opts, baseFilters(opts))
}

func (r *Retriever) semanticFiltered(ctx context.Context, query string, opts models.RetrievalOptions, f vector.Filters) ([]*models.RetrievedChunk, error) {
	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := r.store.Query(ctx, vec, opts.Limit*candidateMultiplier, f)
	if err != nil {
		return nil, err
	}
	out := make([]*models.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		if m.Score < opts.SimilarityThreshold {
			continue
		}
		out = append(out, &models.RetrievedChunk{
			Chunk:      m.Chunk,
			Similarity: m.Score,
			MatchType:  "semantic",
		})
	}
	return out, nil
}
