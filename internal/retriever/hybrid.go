package retriever

import (
	"context"
	"sort"
	"sync"

	"github.com/hyperjump/kizami/internal/models"
)

// Hybrid candidate split, fusion weight, and rerank bonuses. The semantic leg
// supplies 70% of the requested result count and the hierarchical leg the
// rest; fused scores are weighted similarity plus structural bonuses.
const (
	semanticShare   = 0.7
	semanticWeight  = 0.7
	structureBonus  = 0.1
	topSectionBonus = 0.05
)

// hybrid merges the semantic and hierarchical strategies. Both legs run
// concurrently; a failed hierarchical leg degrades to semantic-only rather
// than failing the query. The union is deduplicated and reranked.
func (r *Retriever) hybrid(ctx context.Context, query string, opts models.RetrievalOptions) ([]*models.RetrievedChunk, error) {
	semOpts := opts
	semOpts.SimilarityThreshold = 0
	semOpts.Limit = int(float64(opts.Limit)*semanticShare + 0.5)
	if semOpts.Limit < 1 {
		semOpts.Limit = 1
	}
	hierOpts := opts
	hierOpts.Limit = opts.Limit - semOpts.Limit
	if hierOpts.Limit < 1 {
		hierOpts.Limit = 1
	}

	var (
		semanticResults []*models.RetrievedChunk
		structResults   []*models.RetrievedChunk
		semanticErr     error
		wg              sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		semanticResults, semanticErr = r.semantic(ctx, query, semOpts)
	}()
	go func() {
		defer wg.Done()
		results, err := r.hierarchical(ctx, query, hierOpts)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("hierarchical leg failed, hybrid degrades to semantic")
			}
			return
		}
		structResults = results
	}()
	wg.Wait()
	if semanticErr != nil {
		return nil, semanticErr
	}

	type fused struct {
		rc         *models.RetrievedChunk
		score      float64
		structural bool
	}
	byID := make(map[string]*fused, len(semanticResults)+len(structResults))
	for _, rc := range semanticResults {
		byID[rc.Chunk.ID] = &fused{rc: rc, score: semanticWeight * rc.Similarity}
	}
	for _, rc := range structResults {
		structural := rc.MatchType == "structure"
		if f, ok := byID[rc.Chunk.ID]; ok {
			if structural && !f.structural {
				f.structural = true
				if f.rc.Similarity < opts.SimilarityThreshold {
					// Structure, not similarity, is what keeps this chunk.
					cp := *f.rc
					cp.MatchType = "structure"
					f.rc = &cp
				}
			}
			continue
		}
		byID[rc.Chunk.ID] = &fused{
			rc:         rc,
			score:      semanticWeight * rc.Similarity,
			structural: structural,
		}
	}

	merged := make([]*fused, 0, len(byID))
	for _, f := range byID {
		if f.structural {
			f.score += structureBonus
		}
		if f.rc.Chunk.HierarchyLevel == 1 {
			f.score += topSectionBonus
		}
		merged = append(merged, f)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].rc.Chunk.Position < merged[j].rc.Chunk.Position
	})

	out := make([]*models.RetrievedChunk, 0, len(merged))
	for _, f := range merged {
		// Structural hits stay in regardless of similarity; the structure
		// match is their signal.
		if !f.structural && f.score < opts.SimilarityThreshold*semanticWeight {
			continue
		}
		rc := *f.rc
		rc.Similarity = f.score
		out = append(out, &rc)
	}
	return out, nil
}
