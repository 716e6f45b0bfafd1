// Package cli provides CLI output formatting for Kizami.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kizami/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRetrievalResults writes a retrieval response to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteRetrievalResults(w io.Writer, response *models.RetrievalResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeRetrievalResultsText(w, response)
		return nil
	}
}

func writeRetrievalResultsText(w io.Writer, response *models.RetrievalResponse) {
	fmt.Fprintf(w, "\nFound %d chunks in %dms (strategy: %s)\n\n",
		response.TotalFound, response.ProcessingTime, response.Strategy)
	for i, rc := range response.Chunks {
		writeOneChunk(w, i+1, rc)
	}
	if response.Metadata != nil && len(response.Metadata.Documents) > 0 {
		fmt.Fprintf(w, "documents: %s\n", strings.Join(response.Metadata.Documents, ", "))
		fmt.Fprintf(w, "mean similarity: %.4f\n", response.Metadata.MeanSimilarity)
	}
}

func writeOneChunk(w io.Writer, rank int, rc *models.RetrievedChunk) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "[%s] Rank: %d | Similarity: %.4f\n", rc.MatchType, rank, rc.Similarity)
	fmt.Fprintf(w, "ID: %s\n", rc.Chunk.ID)
	if len(rc.Chunk.HeadingPath) > 0 {
		fmt.Fprintf(w, "Section: %s\n", strings.Join(rc.Chunk.HeadingPath, " > "))
	}
	fmt.Fprintf(w, "\n%s\n", Truncate(rc.Chunk.Content, 200))
	if len(rc.Context) > 0 {
		fmt.Fprintf(w, "(+%d context chunks)\n", len(rc.Context))
	}
	fmt.Fprintln(w)
}

// WriteTOC writes a table of contents to w in the given format. Text output
// indents entries by nesting depth.
func WriteTOC(w io.Writer, entries []*models.TOCEntry, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	writeTOCText(w, entries, 0)
	return nil
}

func writeTOCText(w io.Writer, entries []*models.TOCEntry, depth int) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s%s  [%s]\n", strings.Repeat("  ", depth), e.Title, e.ChunkID)
		writeTOCText(w, e.Children, depth+1)
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
