package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kizami/internal/models"
)

func sampleResponse() *models.RetrievalResponse {
	return &models.RetrievalResponse{
		Query:          "enrollment deadline",
		Strategy:       models.StrategyHybrid,
		ProcessingTime: 12,
		TotalFound:     1,
		Chunks: []*models.RetrievedChunk{
			{
				Similarity: 0.91,
				MatchType:  "semantic",
				Chunk: &models.DocumentChunk{
					ID:          "d1_ab12cd34",
					DocumentID:  "d1",
					Content:     "Enrollment closes at the end of the first week.",
					HeadingPath: []string{"2. Enrollment", "2.1 Deadlines"},
				},
			},
		},
		Metadata: &models.AggregatedMetadata{
			Documents:      []string{"d1"},
			MeanSimilarity: 0.91,
		},
	}
}

func TestWriteRetrievalResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRetrievalResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteRetrievalResults(json): %v", err)
	}
	var decoded models.RetrievalResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "enrollment deadline" || decoded.TotalFound != 1 {
		t.Errorf("decoded response: %+v", decoded)
	}
	if len(decoded.Chunks) != 1 || decoded.Chunks[0].Chunk.ID != "d1_ab12cd34" {
		t.Errorf("decoded chunks: %+v", decoded.Chunks)
	}
}

func TestWriteRetrievalResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRetrievalResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteRetrievalResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 chunks", "12ms", "hybrid", "Rank: 1", "d1_ab12cd34",
		"2. Enrollment > 2.1 Deadlines", "Enrollment closes", "mean similarity"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteRetrievalResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRetrievalResults(&buf, sampleResponse(), OutputFormat("unknown")); err != nil {
		t.Fatalf("WriteRetrievalResults(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "Found") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestWriteTOC_text(t *testing.T) {
	entries := []*models.TOCEntry{
		{
			ChunkID: "c1", Title: "Enrollment", Level: 1,
			Children: []*models.TOCEntry{
				{ChunkID: "c2", Title: "Deadlines", Level: 2},
			},
		},
		{ChunkID: "c3", Title: "Grading", Level: 1},
	}
	var buf bytes.Buffer
	if err := WriteTOC(&buf, entries, OutputText); err != nil {
		t.Fatalf("WriteTOC(text): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Enrollment") || !strings.Contains(out, "  Deadlines") {
		t.Errorf("TOC output missing nesting:\n%s", out)
	}
	if !strings.Contains(out, "Grading") {
		t.Errorf("TOC output missing sibling root:\n%s", out)
	}
}

func TestWriteTOC_JSON(t *testing.T) {
	entries := []*models.TOCEntry{{ChunkID: "c1", Title: "A", Level: 1}}
	var buf bytes.Buffer
	if err := WriteTOC(&buf, entries, OutputJSON); err != nil {
		t.Fatalf("WriteTOC(json): %v", err)
	}
	var decoded []*models.TOCEntry
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("TOC JSON decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ChunkID != "c1" {
		t.Errorf("decoded TOC: %+v", decoded)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
