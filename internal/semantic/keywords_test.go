package semantic

import (
	"reflect"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	text := "Cats love cats. Dogs love cats, dogs bark; owl owl."
	got := ExtractKeywords(text, 3)
	want := []string{"cats", "love", "dogs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractKeywords = %v, want %v", got, want)
	}
}

func TestExtractKeywords_FiltersShortWords(t *testing.T) {
	got := ExtractKeywords("a an the cat ran far away today", 10)
	for _, w := range got {
		if len(w) < 4 {
			t.Errorf("short word %q should have been filtered", w)
		}
	}
}

func TestExtractKeywords_TiesByFirstAppearance(t *testing.T) {
	got := ExtractKeywords("zebra apple zebra apple", 2)
	want := []string{"zebra", "apple"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tie order = %v, want %v", got, want)
	}
}

func TestKeywordOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"cats", "dogs"}, []string{"cats", "dogs"}, 1.0},
		{"disjoint", []string{"cats"}, []string{"stocks"}, 0},
		{"partial against smaller set", []string{"cats", "dogs", "owls"}, []string{"cats", "fish"}, 0.5},
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"cats"}, nil, 0},
	}
	for _, tt := range tests {
		if got := KeywordOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: KeywordOverlap = %f, want %f", tt.name, got, tt.want)
		}
	}
}
