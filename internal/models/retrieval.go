package models

import "fmt"

// Strategy selects a retrieval algorithm.
type Strategy string

const (
	StrategySemantic     Strategy = "semantic"
	StrategyHierarchical Strategy = "hierarchical"
	StrategyHybrid       Strategy = "hybrid"
	StrategyContextual   Strategy = "contextual"
	StrategyKeyword      Strategy = "keyword"
)

// RetrievalOptions are optional parameters for a retrieval request.
type RetrievalOptions struct {
	Limit               int       `json:"limit,omitempty"`
	SimilarityThreshold float64   `json:"similarity_threshold,omitempty"`
	DocumentID          string    `json:"document_id,omitempty"`
	ChunkType           ChunkType `json:"chunk_type,omitempty"`
	HierarchyLevel      *int      `json:"hierarchy_level,omitempty"`
	// ContextWindow is the number of adjacent chunks fetched on each side
	// for the contextual strategy.
	ContextWindow int `json:"context_window,omitempty"`
}

// Normalize applies defaults and caps. Returns an error for an empty query.
func (o *RetrievalOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.5
	}
	if o.ContextWindow <= 0 {
		o.ContextWindow = 2
	}
}

// ValidStrategy reports whether s names a known retrieval strategy.
func ValidStrategy(s Strategy) error {
	switch s {
	case StrategySemantic, StrategyHierarchical, StrategyHybrid, StrategyContextual, StrategyKeyword:
		return nil
	}
	return fmt.Errorf("unknown retrieval strategy %q", s)
}

// RetrievedChunk wraps a stored chunk with retrieval-time data. The wrapped
// chunk is shared with the store and must not be modified.
type RetrievedChunk struct {
	Chunk      *DocumentChunk   `json:"chunk"`
	Similarity float64          `json:"similarity"`
	MatchType  string           `json:"match_type,omitempty"` // "semantic", "structure", "exact", "keyword"
	Context    []*DocumentChunk `json:"context,omitempty"`    // adjacent chunks, contextual strategy only
}

// AggregatedMetadata summarizes a retrieval result set.
type AggregatedMetadata struct {
	Documents       []string `json:"documents"`
	HeadingPaths    []string `json:"heading_paths"`
	HierarchyLevels []int    `json:"hierarchy_levels"`
	MeanSimilarity  float64  `json:"mean_similarity"`
}

// RetrievalResponse is the result of one retrieval call.
type RetrievalResponse struct {
	Chunks         []*RetrievedChunk   `json:"chunks"`
	TotalFound     int                 `json:"total_found"`
	Strategy       Strategy            `json:"strategy"`
	ProcessingTime int64               `json:"processing_time_ms"`
	Metadata       *AggregatedMetadata `json:"aggregated_metadata"`
	Query          string              `json:"query"`
}

// TOCEntry is one node of a reconstructed table of contents.
type TOCEntry struct {
	ChunkID  string      `json:"chunk_id"`
	Title    string      `json:"title"`
	Level    int         `json:"level"`
	Position int         `json:"position"`
	Children []*TOCEntry `json:"children,omitempty"`
}
