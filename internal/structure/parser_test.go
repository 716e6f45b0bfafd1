package structure

import (
	"strings"
	"testing"

	"github.com/hyperjump/kizami/internal/models"
)

func TestParse_HeadingTree(t *testing.T) {
	p := NewParser()
	s := p.Parse("# Title\n\nintro paragraph\n\n## Section\n\nbody text")

	if len(s.RootIDs) != 1 {
		t.Fatalf("expected 1 root, got %d", len(s.RootIDs))
	}
	root, _ := s.Node(s.RootIDs[0])
	if root.Type != models.NodeHeading || root.Level != 1 || root.Content != "Title" {
		t.Fatalf("unexpected root: %+v", root)
	}
	if len(root.ChildIDs) != 2 {
		t.Fatalf("root should have paragraph + subsection, got %d children", len(root.ChildIDs))
	}

	sub, _ := s.Node(root.ChildIDs[1])
	if sub.Type != models.NodeHeading || sub.Level != 2 {
		t.Fatalf("unexpected subsection: %+v", sub)
	}
	if len(sub.Path) != 1 || sub.Path[0] != "Title" {
		t.Errorf("subsection path = %v, want [Title]", sub.Path)
	}
	body, _ := s.Node(sub.ChildIDs[0])
	if len(body.Path) != 2 {
		t.Errorf("body path = %v, want 2 ancestor headings", body.Path)
	}
}

func TestParse_PositionsAndParentLinks(t *testing.T) {
	p := NewParser()
	s := p.Parse("# A\n\npara one.\n\n## B\n\n- x\n- y\n\n| a | b |\n| c | d |")

	for i, n := range s.Nodes {
		if n.Position != i {
			t.Errorf("node %d position = %d, positions must be strictly increasing", i, n.Position)
		}
		if n.ParentID == "" {
			continue
		}
		parent, ok := s.Node(n.ParentID)
		if !ok {
			t.Fatalf("node %s parent %s missing", n.ID, n.ParentID)
		}
		found := false
		for _, cid := range parent.ChildIDs {
			if cid == n.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("parent %s does not list child %s", parent.ID, n.ID)
		}
	}
}

func TestParse_LineClassification(t *testing.T) {
	p := NewParser()
	cases := []struct {
		line string
		want models.NodeType
	}{
		{"## Heading", models.NodeHeading},
		{"2.1 Scope of Work", models.NodeHeading},
		{"- bullet item", models.NodeList},
		{"1. ordered item", models.NodeList},
		{"| col | col |", models.NodeTable},
		{"    indented code", models.NodeCode},
		{"`inline code`", models.NodeCode},
		{"plain prose line", models.NodeParagraph},
		{"#missing-space is not a heading", models.NodeParagraph},
	}
	for _, c := range cases {
		s := p.Parse(c.line)
		if len(s.Nodes) != 1 {
			t.Fatalf("%q: expected one node, got %d", c.line, len(s.Nodes))
		}
		if s.Nodes[0].Type != c.want {
			t.Errorf("%q classified as %s, want %s", c.line, s.Nodes[0].Type, c.want)
		}
	}
}

func TestParse_NumberedHeadingLevel(t *testing.T) {
	p := NewParser()
	s := p.Parse("1.2.3 Deep Section\ncontent")
	h := s.Nodes[0]
	if h.Type != models.NodeHeading || h.Level != 3 {
		t.Fatalf("1.2.3 should be a level-3 heading, got %+v", h)
	}
}

func TestParse_FencedCode(t *testing.T) {
	p := NewParser()
	s := p.Parse("```\nfunc main() {}\nreturn\n```\nafter")
	if len(s.Nodes) != 2 {
		t.Fatalf("expected merged code block + paragraph, got %d nodes", len(s.Nodes))
	}
	if s.Nodes[0].Type != models.NodeCode {
		t.Errorf("fenced lines should be code, got %s", s.Nodes[0].Type)
	}
	if !strings.Contains(s.Nodes[0].Content, "func main()") {
		t.Errorf("code content lost: %q", s.Nodes[0].Content)
	}
}

func TestParse_MergesConsecutiveSiblings(t *testing.T) {
	p := NewParser()
	s := p.Parse("- one\n- two\n- three\n- four\n- five")
	if len(s.Nodes) != 1 {
		t.Fatalf("5 list items should merge to one node, got %d", len(s.Nodes))
	}
	n := s.Nodes[0]
	if n.Type != models.NodeList {
		t.Errorf("merged node type = %s, want list", n.Type)
	}
	for _, item := range []string{"- one", "- five"} {
		if !strings.Contains(n.Content, item) {
			t.Errorf("merged list missing %q: %q", item, n.Content)
		}
	}

	s = p.Parse("first sentence.\nsecond sentence.")
	if len(s.Nodes) != 1 {
		t.Fatalf("consecutive paragraphs should merge, got %d nodes", len(s.Nodes))
	}
	if s.Nodes[0].Content != "first sentence. second sentence." {
		t.Errorf("paragraphs should join with spaces: %q", s.Nodes[0].Content)
	}
}

func TestParse_LevelGapAttachesToNearestShallower(t *testing.T) {
	p := NewParser()
	s := p.Parse("# Top\n### Jumped\ncontent")
	top, _ := s.Node(s.RootIDs[0])
	if len(top.ChildIDs) != 1 {
		t.Fatalf("H3 under H1 should attach to the H1, children = %v", top.ChildIDs)
	}
	jumped, _ := s.Node(top.ChildIDs[0])
	if jumped.Level != 3 {
		t.Errorf("parse keeps the literal level (renumbering is the chunker's job), got %d", jumped.Level)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	p := NewParser()
	for _, in := range []string{"", "   \n\t\n  "} {
		s := p.Parse(in)
		if s.Len() != 0 || len(s.RootIDs) != 0 {
			t.Errorf("input %q should yield an empty structure", in)
		}
	}
}

func TestStructureToText_RoundTrip(t *testing.T) {
	p := NewParser()
	in := "# Alpha\n\nfirst paragraph.\n\n## Beta\n\nsecond paragraph."
	out := StructureToText(p.Parse(in))
	for _, want := range []string{"# Alpha", "first paragraph.", "## Beta", "second paragraph."} {
		if !strings.Contains(out, want) {
			t.Errorf("round-trip lost %q:\n%s", want, out)
		}
	}
}
