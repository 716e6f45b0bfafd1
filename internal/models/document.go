package models

import "time"

// Document is the stored record of one ingested file.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourcePath string    `json:"source_path"`
	FileSize   int64     `json:"file_size"`
	ModTime    time.Time `json:"mod_time"`

	TotalChunks       int     `json:"total_chunks"`
	TotalTokens       int     `json:"total_tokens"`
	SemanticCoherence float64 `json:"semantic_coherence"`
	Degraded          bool    `json:"degraded,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
