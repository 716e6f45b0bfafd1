package chunker

import (
	"strings"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/pkg/utils"
)

// treeNode is one node of the explicit hierarchy tree built from the flat
// parse. depth is the corrected level: always parent depth + 1, so a heading
// that jumps levels (H3 directly under H1) still sits one step below its
// parent.
type treeNode struct {
	node     *models.HierarchyNode
	children []*treeNode
	depth    int
}

// buildTree converts a DocumentStructure into hierarchy trees, one per root.
func buildTree(s *models.DocumentStructure) []*treeNode {
	roots := make([]*treeNode, 0, len(s.RootIDs))
	for _, id := range s.RootIDs {
		n, ok := s.Node(id)
		if !ok {
			continue
		}
		depth := 0
		if n.Type == models.NodeHeading {
			depth = 1
		}
		roots = append(roots, buildSubtree(s, n, depth))
	}
	return roots
}

func buildSubtree(s *models.DocumentStructure, n *models.HierarchyNode, depth int) *treeNode {
	t := &treeNode{node: n, depth: depth}
	for _, childID := range n.ChildIDs {
		child, ok := s.Node(childID)
		if !ok {
			continue
		}
		t.children = append(t.children, buildSubtree(s, child, depth+1))
	}
	return t
}

// subtreeTokens returns the token total of a subtree's content.
func subtreeTokens(t *treeNode) int {
	total := utils.CountTokens(t.node.Content)
	for _, c := range t.children {
		total += subtreeTokens(c)
	}
	return total
}

// subtreeContent returns the concatenated content of a subtree in document order.
func subtreeContent(t *treeNode) string {
	parts := make([]string, 0, 1+len(t.children))
	if strings.TrimSpace(t.node.Content) != "" {
		parts = append(parts, t.node.Content)
	}
	for _, c := range t.children {
		if s := subtreeContent(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// subtreeSpan returns the first and last node positions covered by a subtree.
func subtreeSpan(t *treeNode) (start, end int) {
	start, end = t.node.Position, t.node.Position
	for _, c := range t.children {
		_, ce := subtreeSpan(c)
		if ce > end {
			end = ce
		}
	}
	return start, end
}

// subtreeTypes reports the single chunk type of a subtree, or mixed.
func subtreeTypes(t *treeNode) models.ChunkType {
	types := make(map[models.ChunkType]bool)
	collectTypes(t, types)
	if len(types) == 1 {
		for ct := range types {
			return ct
		}
	}
	return models.ChunkMixed
}

func collectTypes(t *treeNode, types map[models.ChunkType]bool) {
	if strings.TrimSpace(t.node.Content) != "" {
		types[chunkTypeOf(t.node.Type)] = true
	}
	for _, c := range t.children {
		collectTypes(c, types)
	}
}

func chunkTypeOf(t models.NodeType) models.ChunkType {
	switch t {
	case models.NodeHeading:
		return models.ChunkHeading
	case models.NodeParagraph:
		return models.ChunkParagraph
	case models.NodeList:
		return models.ChunkList
	case models.NodeTable:
		return models.ChunkTable
	case models.NodeCode:
		return models.ChunkCode
	default:
		return models.ChunkText
	}
}
