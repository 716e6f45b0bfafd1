package chunker

import "github.com/hyperjump/kizami/internal/models"

// Boundaries stronger than this block merging when semantic boundaries are
// respected.
const strongBoundaryStrength = 0.8

// groupDrafts merges adjacent drafts in a single left-to-right pass. A merge
// happens when the combined size stays under the maximum, no respected
// boundary separates the pair, and the pair is either undersized, both code,
// or structurally related.
func groupDrafts(drafts []*draft, boundaries []*models.SemanticBoundary, cfg models.ChunkingConfig) []*draft {
	if len(drafts) == 0 {
		return drafts
	}
	out := make([]*draft, 0, len(drafts))
	out = append(out, drafts[0])
	for _, d := range drafts[1:] {
		last := out[len(out)-1]
		if canMerge(last, d, boundaries, cfg) {
			out[len(out)-1] = mergeDrafts(last, d)
		} else {
			out = append(out, d)
		}
	}
	return out
}

func canMerge(a, b *draft, boundaries []*models.SemanticBoundary, cfg models.ChunkingConfig) bool {
	if a.tokens+b.tokens > cfg.MaxChunkSize {
		return false
	}
	if cfg.RespectSectionBoundaries && differentSection(a, b) {
		return false
	}
	if cfg.RespectSemanticBoundaries && strongBoundaryBetween(boundaries, a.endPos, b.startPos) {
		return false
	}
	undersized := a.tokens < cfg.MinChunkSize || b.tokens < cfg.MinChunkSize
	bothCode := a.ctype == models.ChunkCode && b.ctype == models.ChunkCode
	return undersized || bothCode || related(a, b)
}

// related reports whether two adjacent drafts belong together structurally:
// a heading followed by its content, or siblings at the same hierarchy level.
func related(a, b *draft) bool {
	if a.ctype == models.ChunkHeading && b.ctype != models.ChunkHeading {
		return true
	}
	return a.level == b.level && a.level > 0
}

// differentSection reports whether the drafts sit under different top-level
// sections. Preamble text before any heading counts as its own section.
func differentSection(a, b *draft) bool {
	return topSection(a) != topSection(b)
}

func topSection(d *draft) string {
	if len(d.headingPath) == 0 {
		return ""
	}
	return d.headingPath[0]
}

// strongBoundaryBetween reports whether a strong semantic boundary falls in
// the node-position gap between two drafts.
func strongBoundaryBetween(boundaries []*models.SemanticBoundary, endPos, startPos int) bool {
	for _, b := range boundaries {
		if b.Position >= endPos && b.Position < startPos && b.Strength > strongBoundaryStrength {
			return true
		}
	}
	return false
}
