package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/hyperjump/kizami/internal/keyword"
	"github.com/hyperjump/kizami/internal/models"
)

// Exact substring hits always rank above analyzed term hits; the term tier
// is scaled under the exact tier's floor.
const (
	termTierCeiling   = 0.9
	keywordCandidates = 50
)

// keyword retrieves in two tiers: exact substring matches of the whole query
// first, then Bleve term matches. Embeddings are never consulted.
func (r *Retriever) keyword(ctx context.Context, query string, opts models.RetrievalOptions) ([]*models.RetrievedChunk, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	exact := make(map[string]*models.RetrievedChunk)
	candidates, err := r.store.GetByFilter(ctx, baseFilters(opts))
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Content), needle) {
			exact[c.ID] = &models.RetrievedChunk{Chunk: c, Similarity: 1.0, MatchType: "exact"}
		}
	}

	termHits, err := r.keywordIndex.Search(ctx, query, keywordCandidates, opts.DocumentID)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("keyword index unavailable, exact tier only")
		}
		termHits = nil
	}
	termScores := normalizeKeywordScores(termHits)

	out := make([]*models.RetrievedChunk, 0, len(exact)+len(termScores))
	for _, rc := range exact {
		out = append(out, rc)
	}
	for id, score := range termScores {
		if _, ok := exact[id]; ok {
			continue
		}
		chunk, err := r.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if !baseFilters(opts).Match(chunk) {
			continue
		}
		out = append(out, &models.RetrievedChunk{
			Chunk:      chunk,
			Similarity: termTierCeiling * score,
			MatchType:  "keyword",
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Chunk.Position < out[j].Chunk.Position
	})
	return out, nil
}

// normalizeKeywordScores scales keyword scores to [0,1] by the max score.
func normalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ChunkID] = r.Score / maxScore
		}
	}
	return normalized
}
