package models

import "testing"

func TestChunkingConfig_ValidateDefaults(t *testing.T) {
	cfg := DefaultChunkingConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestChunkingConfig_ValidateInvertedBounds(t *testing.T) {
	cfg := DefaultChunkingConfig()
	cfg.MinChunkSize = 900
	if err := cfg.Validate(); err == nil {
		t.Error("min > max must be rejected")
	}

	cfg = DefaultChunkingConfig()
	cfg.TargetChunkSize = 50
	if err := cfg.Validate(); err == nil {
		t.Error("target < min must be rejected")
	}

	cfg = DefaultChunkingConfig()
	cfg.OverlapPercentage = 1.0
	if err := cfg.Validate(); err == nil {
		t.Error("overlap >= 1 must be rejected")
	}

	cfg = DefaultChunkingConfig()
	cfg.MaxChunkSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max must be rejected")
	}
}

func TestValidStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategySemantic, StrategyHierarchical, StrategyHybrid, StrategyContextual, StrategyKeyword} {
		if err := ValidStrategy(s); err != nil {
			t.Errorf("strategy %q should be valid: %v", s, err)
		}
	}
	if err := ValidStrategy("fulltext"); err == nil {
		t.Error("unknown strategy should be rejected")
	}
}

func TestRetrievalOptions_Normalize(t *testing.T) {
	o := &RetrievalOptions{}
	o.Normalize()
	if o.Limit != 10 || o.SimilarityThreshold != 0.5 || o.ContextWindow != 2 {
		t.Errorf("unexpected defaults: %+v", o)
	}
	o = &RetrievalOptions{Limit: 500}
	o.Normalize()
	if o.Limit != 100 {
		t.Errorf("limit should be capped at 100, got %d", o.Limit)
	}
}

func TestDocumentStructure_Arena(t *testing.T) {
	s := NewDocumentStructure()
	a := &HierarchyNode{ID: "a", Type: NodeHeading, Level: 1, Position: 0}
	b := &HierarchyNode{ID: "b", Type: NodeParagraph, ParentID: "a", Position: 1}
	s.Add(a)
	s.Add(b)
	got, ok := s.Node("b")
	if !ok || got.ParentID != "a" {
		t.Fatalf("lookup failed: %v %v", got, ok)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	s.Nodes = []*HierarchyNode{b}
	s.Reindex()
	if _, ok := s.Node("a"); ok {
		t.Error("reindex should drop removed nodes")
	}
}
