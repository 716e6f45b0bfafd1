package models

import (
	"fmt"
	"time"
)

// ChunkType classifies a chunk's content.
type ChunkType string

const (
	ChunkHeading   ChunkType = "heading"
	ChunkParagraph ChunkType = "paragraph"
	ChunkList      ChunkType = "list"
	ChunkTable     ChunkType = "table"
	ChunkCode      ChunkType = "code"
	ChunkText      ChunkType = "text"
	ChunkMixed     ChunkType = "mixed"
)

// ChunkProvenance is immutable source metadata attached to every chunk.
type ChunkProvenance struct {
	SourceFileID   string    `json:"source_file_id,omitempty"`
	SourceFileName string    `json:"source_file_name,omitempty"`
	ChunkingMethod string    `json:"chunking_method"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentChunk is the unit of retrieval. It is never mutated after the
// chunker's post-processing (overlap and relationship assignment) completes;
// retrieval-time data lives on RetrievedChunk instead.
type DocumentChunk struct {
	ID             string    `json:"id" db:"id"`
	DocumentID     string    `json:"document_id" db:"document_id"`
	Content        string    `json:"content" db:"content"`
	Tokens         int       `json:"tokens" db:"tokens"`
	Position       int       `json:"position" db:"position"`
	HeadingPath    []string  `json:"heading_path,omitempty"`
	HierarchyLevel int       `json:"hierarchy_level" db:"hierarchy_level"`
	Type           ChunkType `json:"chunk_type" db:"chunk_type"`

	SemanticDensity float64  `json:"semantic_density"` // 0-1
	TopicKeywords   []string `json:"topic_keywords,omitempty"`

	HasOverlapPrevious bool   `json:"has_overlap_previous"`
	HasOverlapNext     bool   `json:"has_overlap_next"`
	OverlapText        string `json:"overlap_text,omitempty"`

	PrevChunkID string   `json:"prev_chunk_id,omitempty"`
	NextChunkID string   `json:"next_chunk_id,omitempty"`
	SiblingIDs  []string `json:"sibling_ids,omitempty"`
	ChildIDs    []string `json:"child_ids,omitempty"`

	Source ChunkProvenance `json:"source"`

	Embedding []float32 `json:"-" db:"-"`
}

// ChunkingConfig is the immutable run configuration for the chunker.
// Adaptive variants are derived from it before a run, never mutated in place.
type ChunkingConfig struct {
	MinChunkSize      int     `json:"min_chunk_size" yaml:"min_chunk_size"`
	MaxChunkSize      int     `json:"max_chunk_size" yaml:"max_chunk_size"`
	TargetChunkSize   int     `json:"target_chunk_size" yaml:"target_chunk_size"`
	OverlapPercentage float64 `json:"overlap_percentage" yaml:"overlap_percentage"`

	RespectSemanticBoundaries bool `json:"respect_semantic_boundaries" yaml:"respect_semantic_boundaries"`
	RespectSectionBoundaries  bool `json:"respect_section_boundaries" yaml:"respect_section_boundaries"`
	IncludeHeadingContext     bool `json:"include_heading_context" yaml:"include_heading_context"`
}

// DefaultChunkingConfig returns the standard chunking profile.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		MinChunkSize:              100,
		MaxChunkSize:              800,
		TargetChunkSize:           400,
		OverlapPercentage:         0.15,
		RespectSemanticBoundaries: true,
		RespectSectionBoundaries:  true,
		IncludeHeadingContext:     true,
	}
}

// Validate rejects inverted or nonsensical bounds. This is the one class of
// caller-visible rejection in the chunking pipeline.
func (c ChunkingConfig) Validate() error {
	if c.MinChunkSize <= 0 || c.MaxChunkSize <= 0 || c.TargetChunkSize <= 0 {
		return fmt.Errorf("chunk sizes must be positive: min=%d target=%d max=%d",
			c.MinChunkSize, c.TargetChunkSize, c.MaxChunkSize)
	}
	if c.MinChunkSize > c.MaxChunkSize {
		return fmt.Errorf("min_chunk_size %d exceeds max_chunk_size %d", c.MinChunkSize, c.MaxChunkSize)
	}
	if c.TargetChunkSize < c.MinChunkSize || c.TargetChunkSize > c.MaxChunkSize {
		return fmt.Errorf("target_chunk_size %d outside [%d, %d]", c.TargetChunkSize, c.MinChunkSize, c.MaxChunkSize)
	}
	if c.OverlapPercentage < 0 || c.OverlapPercentage >= 1 {
		return fmt.Errorf("overlap_percentage %g outside [0, 1)", c.OverlapPercentage)
	}
	return nil
}

// ChunkingResult is the full output of chunking one document.
type ChunkingResult struct {
	Chunks           []*DocumentChunk `json:"chunks"`
	TotalChunks      int              `json:"total_chunks"`
	TotalTokens      int              `json:"total_tokens"`
	AverageChunkSize float64          `json:"average_chunk_size"`

	OverlapEfficiency     float64 `json:"overlap_efficiency"`
	SemanticCoherence     float64 `json:"semantic_coherence"`
	HierarchyPreservation float64 `json:"hierarchy_preservation"`

	// Degraded is set when any fallback path (embedding substitution) was used.
	Degraded bool `json:"degraded,omitempty"`
}
