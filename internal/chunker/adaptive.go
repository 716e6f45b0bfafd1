package chunker

import "github.com/hyperjump/kizami/internal/models"

// Short documents get proportionally smaller size profiles so they still
// yield more than one chunk.
const (
	shortDocTokens  = 300
	mediumDocTokens = 1000
	longDocTokens   = 3000

	minAdaptiveChunkSize = 20
)

// AdaptiveConfig derives a size profile scaled to the document's total token
// count. The input config is never mutated. Boolean flags and the overlap
// ratio pass through unchanged.
func AdaptiveConfig(cfg models.ChunkingConfig, totalTokens int) models.ChunkingConfig {
	scale := 1.0
	switch {
	case totalTokens < shortDocTokens:
		scale = 0.25
	case totalTokens < mediumDocTokens:
		scale = 0.5
	case totalTokens < longDocTokens:
		scale = 0.75
	}
	if scale == 1.0 {
		return cfg
	}
	out := cfg
	out.MinChunkSize = scaledSize(cfg.MinChunkSize, scale)
	out.TargetChunkSize = scaledSize(cfg.TargetChunkSize, scale)
	out.MaxChunkSize = scaledSize(cfg.MaxChunkSize, scale)
	if out.TargetChunkSize < out.MinChunkSize {
		out.TargetChunkSize = out.MinChunkSize
	}
	if out.MaxChunkSize < out.TargetChunkSize {
		out.MaxChunkSize = out.TargetChunkSize
	}
	return out
}

// scaledSize shrinks a size, flooring at minAdaptiveChunkSize. A config that
// is already smaller than the floor is left alone rather than enlarged.
func scaledSize(size int, scale float64) int {
	s := int(float64(size) * scale)
	floor := minAdaptiveChunkSize
	if size < floor {
		floor = size
	}
	if s < floor {
		s = floor
	}
	return s
}
