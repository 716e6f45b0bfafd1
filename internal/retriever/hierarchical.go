package retriever

import (
	"context"
	"regexp"
	"sort"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/vector"
)

var (
	levelHintRe   = regexp.MustCompile(`(?i)\blevel\s+(\d+)\b`)
	sectionHintRe = regexp.MustCompile(`(?i)\b(?:section|chapter|part)\s+([\w][\w.]*)`)
)

// hierarchical retrieves by document structure. Structural hints in the query
// ("level 2", "section 3.1", "chapter four") become store filters; hits under
// a matched structure count regardless of embedding similarity. Without
// hints, the strategy behaves like semantic search.
func (r *Retriever) hierarchical(ctx context.Context, query string, opts models.RetrievalOptions) ([]*models.RetrievedChunk, error) {
	f := baseFilters(opts)
	hinted := false
	if m := levelHintRe.FindStringSubmatch(query); m != nil && f.HierarchyLevel == nil {
		level := 0
		for _, c := range m[1] {
			level = level*10 + int(c-'0')
		}
		f.HierarchyLevel = &level
		hinted = true
	}
	if m := sectionHintRe.FindStringSubmatch(query); m != nil && f.HeadingPathContains == "" {
		f.HeadingPathContains = m[1]
		hinted = true
	}
	if !hinted {
		return r.semanticFiltered(ctx, query, opts, f)
	}

	out, err := r.structural(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}
	// Hint matched nothing; treat the hint words as ordinary query text.
	return r.semanticFiltered(ctx, query, opts, baseFilters(opts))
}

// structural returns the filter-matched chunks ordered by hierarchy level,
// then document position. The structural match itself is the signal;
// embedding similarity is not consulted.
func (r *Retriever) structural(ctx context.Context, f vector.Filters) ([]*models.RetrievedChunk, error) {
	chunks, err := r.store.GetByFilter(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].HierarchyLevel != chunks[j].HierarchyLevel {
			return chunks[i].HierarchyLevel < chunks[j].HierarchyLevel
		}
		return chunks[i].Position < chunks[j].Position
	})
	out := make([]*models.RetrievedChunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, &models.RetrievedChunk{Chunk: c, MatchType: "structure"})
	}
	return out, nil
}
