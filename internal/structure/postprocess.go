package structure

import (
	"github.com/hyperjump/kizami/internal/models"
)

// mergeSiblings collapses runs of consecutive same-type, same-parent
// non-heading nodes into single nodes: paragraphs join with spaces, list
// items become one bulleted block, table rows one table block, code lines
// one code block. This prevents pathological single-line chunks downstream.
func mergeSiblings(s *models.DocumentStructure) {
	if len(s.Nodes) < 2 {
		return
	}

	merged := make([]*models.HierarchyNode, 0, len(s.Nodes))
	removed := make(map[string]bool)

	i := 0
	for i < len(s.Nodes) {
		cur := s.Nodes[i]
		if cur.Type == models.NodeHeading {
			merged = append(merged, cur)
			i++
			continue
		}

		j := i + 1
		for j < len(s.Nodes) {
			next := s.Nodes[j]
			if next.Type != cur.Type || next.ParentID != cur.ParentID {
				break
			}
			cur.Content = joinContent(cur.Type, cur.Content, next.Content)
			cur.RawText = cur.RawText + "\n" + next.RawText
			removed[next.ID] = true
			j++
		}
		merged = append(merged, cur)
		i = j
	}

	if len(removed) == 0 {
		return
	}

	// Drop merged-away ids from parent child listings and renumber positions.
	for _, n := range merged {
		if len(n.ChildIDs) == 0 {
			continue
		}
		kept := n.ChildIDs[:0]
		for _, id := range n.ChildIDs {
			if !removed[id] {
				kept = append(kept, id)
			}
		}
		n.ChildIDs = kept
	}
	keptRoots := make([]string, 0, len(s.RootIDs))
	for _, id := range s.RootIDs {
		if !removed[id] {
			keptRoots = append(keptRoots, id)
		}
	}
	s.RootIDs = keptRoots

	for pos, n := range merged {
		n.Position = pos
	}
	s.Nodes = merged
	s.Reindex()
}

func joinContent(t models.NodeType, a, b string) string {
	switch t {
	case models.NodeParagraph, models.NodeText:
		return a + " " + b
	default:
		// list items keep their markers, table rows and code keep their lines
		return a + "\n" + b
	}
}
