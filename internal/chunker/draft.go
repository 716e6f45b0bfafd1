package chunker

import (
	"strings"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/pkg/utils"
)

// draft is an intermediate chunk produced by the bottom-up tree walk. Drafts
// are immutable value carriers; merging produces a new draft rather than
// mutating either input.
type draft struct {
	content     string
	tokens      int
	ctype       models.ChunkType
	headingPath []string
	level       int
	startPos    int
	endPos      int
}

// draftFromNode builds a draft covering a single node.
func draftFromNode(t *treeNode) *draft {
	return &draft{
		content:     t.node.Content,
		tokens:      utils.CountTokens(t.node.Content),
		ctype:       chunkTypeOf(t.node.Type),
		headingPath: nodeHeadingPath(t.node),
		level:       t.depth,
		startPos:    t.node.Position,
		endPos:      t.node.Position,
	}
}

// draftFromSubtree builds a single draft covering a whole subtree.
func draftFromSubtree(t *treeNode) *draft {
	content := subtreeContent(t)
	start, end := subtreeSpan(t)
	return &draft{
		content:     content,
		tokens:      utils.CountTokens(content),
		ctype:       subtreeTypes(t),
		headingPath: nodeHeadingPath(t.node),
		level:       t.depth,
		startPos:    start,
		endPos:      end,
	}
}

// nodeHeadingPath returns the heading path for chunks rooted at n. A heading
// contributes its own title so that a section chunk is addressable by the
// section it opens, not just by its ancestors.
func nodeHeadingPath(n *models.HierarchyNode) []string {
	if n.Type != models.NodeHeading {
		return append([]string(nil), n.Path...)
	}
	path := make([]string, 0, len(n.Path)+1)
	path = append(path, n.Path...)
	return append(path, strings.TrimSpace(n.Content))
}

// prependHeading attaches a heading draft to the front of its first child
// chunk. The merged chunk keeps the heading's path and level so the section
// stays addressable as a whole.
func prependHeading(heading, child *draft) *draft {
	return &draft{
		content:     heading.content + "\n\n" + child.content,
		tokens:      heading.tokens + child.tokens,
		ctype:       child.ctype,
		headingPath: heading.headingPath,
		level:       heading.level,
		startPos:    heading.startPos,
		endPos:      child.endPos,
	}
}

// mergeDrafts combines two adjacent drafts into one. Equal types are kept;
// differing types become mixed.
func mergeDrafts(a, b *draft) *draft {
	ctype := a.ctype
	if a.ctype != b.ctype {
		ctype = models.ChunkMixed
	}
	return &draft{
		content:     a.content + "\n\n" + b.content,
		tokens:      a.tokens + b.tokens,
		ctype:       ctype,
		headingPath: a.headingPath,
		level:       a.level,
		startPos:    a.startPos,
		endPos:      b.endPos,
	}
}

// splitOversized splits a draft that exceeds the maximum size into
// target-sized pieces along sentence boundaries. A draft within bounds is
// returned unchanged.
func splitOversized(d *draft, cfg models.ChunkingConfig) []*draft {
	if d.tokens <= cfg.MaxChunkSize {
		return []*draft{d}
	}
	sentences := utils.SplitSentences(d.content)
	if len(sentences) <= 1 {
		// No sentence boundaries to split on. An indivisible block stays
		// oversized rather than being cut mid-word.
		return []*draft{d}
	}
	var out []*draft
	var buf []string
	bufTokens := 0
	flush := func() {
		if len(buf) == 0 {
			return
		}
		content := strings.Join(buf, " ")
		out = append(out, &draft{
			content:     content,
			tokens:      utils.CountTokens(content),
			ctype:       d.ctype,
			headingPath: d.headingPath,
			level:       d.level,
			startPos:    d.startPos,
			endPos:      d.endPos,
		})
		buf, bufTokens = nil, 0
	}
	for _, s := range sentences {
		st := utils.CountTokens(s)
		if bufTokens > 0 && bufTokens+st > cfg.TargetChunkSize {
			// An undersized buffer folds into the next piece as long as the
			// combined piece stays under the maximum.
			if bufTokens >= cfg.MinChunkSize || bufTokens+st > cfg.MaxChunkSize {
				flush()
			}
		}
		buf = append(buf, s)
		bufTokens += st
	}
	flush()
	return out
}
