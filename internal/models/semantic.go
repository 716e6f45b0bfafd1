package models

// BoundaryType classifies the strength of a semantic boundary.
type BoundaryType string

const (
	BoundaryWeak     BoundaryType = "weak"
	BoundaryModerate BoundaryType = "moderate"
	BoundaryStrong   BoundaryType = "strong"
)

// SemanticBoundary annotates the gap between two adjacent text units.
// Position is the document position of the earlier node of the pair.
type SemanticBoundary struct {
	Position       int          `json:"position"`
	Strength       float64      `json:"strength"` // 0-1
	SimilarityDrop float64      `json:"similarity_drop"`
	TopicShift     bool         `json:"topic_shift_detected"`
	Type           BoundaryType `json:"boundary_type"`
}

// SemanticSegment is a coherence-grouped span over the node sequence.
type SemanticSegment struct {
	StartPosition    int       `json:"start_position"`
	EndPosition      int       `json:"end_position"`
	Content          string    `json:"content"`
	Coherence        float64   `json:"coherence"` // 0-1, 1.0 for singleton segments
	TopicKeywords    []string  `json:"topic_keywords,omitempty"`
	Embedding        []float32 `json:"-"` // averaged unit embedding, normalized
	SimilarityToPrev float64   `json:"similarity_to_prev"`
	SimilarityToNext float64   `json:"similarity_to_next"`
}

// BoundaryAnalysis is the full output of semantic boundary detection.
type BoundaryAnalysis struct {
	Segments               []*SemanticSegment  `json:"segments"`
	Boundaries             []*SemanticBoundary `json:"boundaries"`
	OverallCoherence       float64             `json:"overall_coherence"`
	RecommendedSplitPoints []int               `json:"recommended_split_points,omitempty"`
	// Degraded is set when fallback embeddings were substituted for the
	// external embedding service.
	Degraded bool `json:"degraded,omitempty"`
}
