package chunker

import "github.com/hyperjump/kizami/internal/models"

// assignRelationships links the final chunk sequence: prev/next by document
// order, siblings by shared hierarchy level, children by heading-path
// extension one level down.
func assignRelationships(chunks []*models.DocumentChunk) {
	for i, c := range chunks {
		if i > 0 {
			c.PrevChunkID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			c.NextChunkID = chunks[i+1].ID
		}
	}
	for _, c := range chunks {
		for _, other := range chunks {
			if other.ID == c.ID {
				continue
			}
			if other.HierarchyLevel == c.HierarchyLevel {
				c.SiblingIDs = append(c.SiblingIDs, other.ID)
			}
			if other.HierarchyLevel == c.HierarchyLevel+1 && pathExtends(other.HeadingPath, c.HeadingPath) {
				c.ChildIDs = append(c.ChildIDs, other.ID)
			}
		}
	}
}

// pathExtends reports whether child strictly extends parent.
func pathExtends(child, parent []string) bool {
	if len(child) <= len(parent) {
		return false
	}
	for i, p := range parent {
		if child[i] != p {
			return false
		}
	}
	return true
}
