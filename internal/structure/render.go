package structure

import (
	"strings"

	"github.com/hyperjump/kizami/internal/models"
)

// StructureToText renders a parsed structure back to text: headings with
// markdown markers, other nodes as their content, one blank line between
// blocks. Whitespace is not preserved exactly; heading and paragraph content
// round-trips.
func StructureToText(s *models.DocumentStructure) string {
	var b strings.Builder
	for _, id := range s.RootIDs {
		renderNode(s, id, &b)
	}
	return strings.TrimSpace(b.String())
}

func renderNode(s *models.DocumentStructure, id string, b *strings.Builder) {
	n, ok := s.Node(id)
	if !ok {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	if n.Type == models.NodeHeading {
		level := n.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		b.WriteString(strings.Repeat("#", level))
		b.WriteByte(' ')
	}
	b.WriteString(n.Content)
	for _, childID := range n.ChildIDs {
		renderNode(s, childID, b)
	}
}
