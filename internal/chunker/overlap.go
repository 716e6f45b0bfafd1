package chunker

import (
	"strings"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/pkg/utils"
)

// Overlap text never exceeds 1.5x its token budget, so a single huge trailing
// sentence cannot blow up chunk sizes.
const overlapSlack = 1.5

// applyOverlap records trailing-sentence overlap between consecutive chunks.
// The overlap text is stored on the earlier chunk; both chunks get their
// directional flags set. Content itself is not duplicated.
func applyOverlap(chunks []*models.DocumentChunk, cfg models.ChunkingConfig) {
	if cfg.OverlapPercentage <= 0 {
		return
	}
	for i := 0; i < len(chunks)-1; i++ {
		earlier, later := chunks[i], chunks[i+1]
		budget := int(cfg.OverlapPercentage * float64(earlier.Tokens))
		if budget <= 0 {
			continue
		}
		text := trailingSentences(earlier.Content, budget)
		if text == "" {
			continue
		}
		earlier.OverlapText = text
		earlier.HasOverlapNext = true
		later.HasOverlapPrevious = true
	}
}

// trailingSentences takes whole sentences from the end of content until the
// token budget is met, never exceeding budget*overlapSlack.
func trailingSentences(content string, budget int) string {
	sentences := utils.SplitSentences(content)
	if len(sentences) == 0 {
		return ""
	}
	limit := int(float64(budget) * overlapSlack)
	var taken []string
	tokens := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		st := utils.CountTokens(sentences[i])
		if len(taken) > 0 && tokens+st > limit {
			break
		}
		taken = append([]string{sentences[i]}, taken...)
		tokens += st
		if tokens >= budget {
			break
		}
	}
	if tokens > limit && len(taken) > 1 {
		taken = taken[1:]
	}
	return strings.Join(taken, " ")
}
