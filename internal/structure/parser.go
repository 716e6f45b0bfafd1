// Package structure recovers a heading/content tree from flat document text.
package structure

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kizami/internal/models"
)

var (
	mdHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	// Numbered headings require at least one internal dot ("1.2 Title") so
	// that ordered list items ("1. item") are not swallowed.
	numHeadingRe = regexp.MustCompile(`^(\d+(?:\.\d+)+)\.?\s+(\S.*)$`)
	listItemRe   = regexp.MustCompile(`^\s*(?:[-*+\x{2022}]|\d+[.)])\s+\S`)
	inlineCodeRe = regexp.MustCompile("^`[^`]+`$")
)

// Parser converts raw text into a DocumentStructure. Malformed markup never
// fails; anything unrecognized degrades to a paragraph node.
type Parser struct{}

// NewParser returns a structure parser.
func NewParser() *Parser {
	return &Parser{}
}

// stackEntry tracks an open heading while parsing.
type stackEntry struct {
	node  *models.HierarchyNode
	level int
}

// Parse processes text line by line and returns the document structure.
// Empty or whitespace-only input yields an empty, valid structure.
func (p *Parser) Parse(text string) *models.DocumentStructure {
	s := models.NewDocumentStructure()
	if strings.TrimSpace(text) == "" {
		return s
	}

	var stack []stackEntry
	position := 0
	inFence := false

	attach := func(n *models.HierarchyNode) {
		if len(stack) > 0 {
			top := stack[len(stack)-1].node
			n.ParentID = top.ID
			top.ChildIDs = append(top.ChildIDs, n.ID)
		} else {
			s.RootIDs = append(s.RootIDs, n.ID)
		}
		s.Add(n)
	}

	pathFromStack := func() []string {
		if len(stack) == 0 {
			return nil
		}
		path := make([]string, len(stack))
		for i, e := range stack {
			path[i] = e.node.Content
		}
		return path
	}

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimRight(rawLine, " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Fence lines toggle code mode and carry no content of their own.
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			attachCode := newNode(models.NodeCode, trimmed, rawLine, position)
			attachCode.Path = pathFromStack()
			if len(stack) > 0 {
				attachCode.Level = stack[len(stack)-1].level + 1
			}
			attach(attachCode)
			position++
			continue
		}

		nodeType, level, content := classifyLine(line)

		if nodeType == models.NodeHeading {
			// Pop until the new heading's parent is on top.
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			n := newNode(models.NodeHeading, content, rawLine, position)
			n.Level = level
			n.Path = pathFromStack()
			attach(n)
			stack = append(stack, stackEntry{node: n, level: level})
			position++
			continue
		}

		n := newNode(nodeType, content, rawLine, position)
		n.Path = pathFromStack()
		if len(stack) > 0 {
			n.Level = stack[len(stack)-1].level + 1
		}
		attach(n)
		position++
	}

	mergeSiblings(s)
	return s
}

func newNode(t models.NodeType, content, raw string, position int) *models.HierarchyNode {
	return &models.HierarchyNode{
		ID:       uuid.New().String()[:8],
		Type:     t,
		Content:  content,
		Position: position,
		RawText:  raw,
	}
}

// classifyLine applies the ordered pattern checks: markdown heading, numbered
// heading, list item, table row, code, else paragraph.
func classifyLine(line string) (models.NodeType, int, string) {
	trimmed := strings.TrimSpace(line)

	if m := mdHeadingRe.FindStringSubmatch(trimmed); m != nil {
		return models.NodeHeading, len(m[1]), strings.TrimSpace(m[2])
	}
	if m := numHeadingRe.FindStringSubmatch(trimmed); m != nil {
		level := len(strings.Split(m[1], "."))
		return models.NodeHeading, level, strings.TrimSpace(trimmed)
	}
	if listItemRe.MatchString(line) {
		return models.NodeList, 0, trimmed
	}
	if strings.Count(trimmed, "|") >= 2 {
		return models.NodeTable, 0, trimmed
	}
	if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") || inlineCodeRe.MatchString(trimmed) {
		return models.NodeCode, 0, trimmed
	}
	return models.NodeParagraph, 0, trimmed
}
