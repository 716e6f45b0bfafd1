// Package models defines core data structures for document structure, chunks, and retrieval.
package models

// NodeType classifies a structural unit of a document.
type NodeType string

const (
	NodeHeading   NodeType = "heading"
	NodeParagraph NodeType = "paragraph"
	NodeList      NodeType = "list"
	NodeTable     NodeType = "table"
	NodeCode      NodeType = "code"
	NodeText      NodeType = "text"
)

// HierarchyNode is one structural unit of a parsed document. Nodes are created
// during parsing and are immutable once post-processing completes.
type HierarchyNode struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Level    int      `json:"level"` // 0 = root, 1 = top heading
	Content  string   `json:"content"`
	ParentID string   `json:"parent_id,omitempty"`
	ChildIDs []string `json:"child_ids,omitempty"`
	Path     []string `json:"path,omitempty"` // ancestor heading titles, outermost first
	Position int      `json:"position"`      // monotonic document order
	RawText  string   `json:"raw_text"`
}

// DocumentStructure owns the full node set for one document. Nodes is
// insertion-ordered; lookups by id go through an index into that slice
// (arena layout, no pointer cycles). Read-only after parsing.
type DocumentStructure struct {
	Nodes   []*HierarchyNode `json:"nodes"`
	RootIDs []string         `json:"root_ids"`

	index map[string]int
}

// NewDocumentStructure returns an empty structure ready for node insertion.
func NewDocumentStructure() *DocumentStructure {
	return &DocumentStructure{index: make(map[string]int)}
}

// Add appends a node to the arena and indexes it by id.
func (s *DocumentStructure) Add(n *HierarchyNode) {
	s.index[n.ID] = len(s.Nodes)
	s.Nodes = append(s.Nodes, n)
}

// Node returns the node with the given id.
func (s *DocumentStructure) Node(id string) (*HierarchyNode, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.Nodes[i], true
}

// HeadingPath returns the heading-title path of the node with the given id.
func (s *DocumentStructure) HeadingPath(id string) []string {
	n, ok := s.Node(id)
	if !ok {
		return nil
	}
	return n.Path
}

// Len returns the number of nodes.
func (s *DocumentStructure) Len() int {
	return len(s.Nodes)
}

// Reindex rebuilds the id index after post-processing replaces the node slice.
func (s *DocumentStructure) Reindex() {
	s.index = make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		s.index[n.ID] = i
	}
}
