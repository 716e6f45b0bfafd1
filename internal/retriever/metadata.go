package retriever

import (
	"sort"
	"strings"

	"github.com/hyperjump/kizami/internal/models"
)

// dedupe removes duplicate chunks by id, keeping the first (highest-ranked)
// occurrence.
func dedupe(chunks []*models.RetrievedChunk) []*models.RetrievedChunk {
	seen := make(map[string]bool, len(chunks))
	out := chunks[:0]
	for _, rc := range chunks {
		if rc == nil || rc.Chunk == nil || seen[rc.Chunk.ID] {
			continue
		}
		seen[rc.Chunk.ID] = true
		out = append(out, rc)
	}
	return out
}

// aggregate summarizes a result set: distinct documents, heading paths,
// hierarchy levels, and the mean similarity of scored hits.
func aggregate(chunks []*models.RetrievedChunk) *models.AggregatedMetadata {
	meta := &models.AggregatedMetadata{
		Documents:       []string{},
		HeadingPaths:    []string{},
		HierarchyLevels: []int{},
	}
	docs := make(map[string]bool)
	paths := make(map[string]bool)
	levels := make(map[int]bool)
	simSum, scored := 0.0, 0
	for _, rc := range chunks {
		if !docs[rc.Chunk.DocumentID] {
			docs[rc.Chunk.DocumentID] = true
			meta.Documents = append(meta.Documents, rc.Chunk.DocumentID)
		}
		if len(rc.Chunk.HeadingPath) > 0 {
			p := strings.Join(rc.Chunk.HeadingPath, " > ")
			if !paths[p] {
				paths[p] = true
				meta.HeadingPaths = append(meta.HeadingPaths, p)
			}
		}
		if !levels[rc.Chunk.HierarchyLevel] {
			levels[rc.Chunk.HierarchyLevel] = true
			meta.HierarchyLevels = append(meta.HierarchyLevels, rc.Chunk.HierarchyLevel)
		}
		if rc.Similarity > 0 {
			simSum += rc.Similarity
			scored++
		}
	}
	sort.Ints(meta.HierarchyLevels)
	if scored > 0 {
		meta.MeanSimilarity = simSum / float64(scored)
	}
	return meta
}
