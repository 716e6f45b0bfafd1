package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/vector"
)

// BrowseTOC reconstructs a document's table of contents from its stored
// chunks. Each distinct heading path contributes one entry, nested by path
// depth; the entry points at the first chunk of that section.
func (r *Retriever) BrowseTOC(ctx context.Context, documentID string) ([]*models.TOCEntry, error) {
	chunks, err := r.store.GetByFilter(ctx, vector.Filters{DocumentID: documentID})
	if err != nil {
		return nil, err
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })

	var roots []*models.TOCEntry
	var stack []*models.TOCEntry
	seen := make(map[string]bool)
	for _, c := range chunks {
		if len(c.HeadingPath) == 0 {
			continue
		}
		key := strings.Join(c.HeadingPath, " > ")
		if seen[key] {
			continue
		}
		seen[key] = true
		entry := &models.TOCEntry{
			ChunkID:  c.ID,
			Title:    c.HeadingPath[len(c.HeadingPath)-1],
			Level:    len(c.HeadingPath),
			Position: c.Position,
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= entry.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, entry)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, entry)
		}
		stack = append(stack, entry)
	}
	return roots, nil
}
