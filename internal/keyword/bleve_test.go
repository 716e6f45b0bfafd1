package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kizami/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "chunks.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func chunk(id, docID, content string, path ...string) *models.DocumentChunk {
	return &models.DocumentChunk{
		ID:          id,
		DocumentID:  docID,
		Content:     content,
		Type:        models.ChunkParagraph,
		HeadingPath: path,
	}
}

func TestBleveIndex_SearchFindsExactTerms(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	chunks := []*models.DocumentChunk{
		chunk("c1", "d1", "Students must provide FERPA consent before records are shared.", "Privacy"),
		chunk("c2", "d1", "The cafeteria menu rotates weekly.", "Facilities"),
		chunk("c3", "d2", "Directory information may be released without consent.", "Privacy"),
	}
	if err := idx.IndexChunks(ctx, chunks); err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}

	results, err := idx.Search(ctx, "FERPA consent", 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results for indexed terms")
	}
	if results[0].ChunkID != "c1" {
		t.Errorf("chunk matching both terms should rank first, got %s", results[0].ChunkID)
	}
	for _, r := range results {
		if r.ChunkID == "c2" {
			t.Error("unrelated chunk matched")
		}
	}
}

func TestBleveIndex_HeadingPathBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.IndexChunk(ctx, chunk("body", "d1", "A passing mention of enrollment here.", "Misc"))
	_ = idx.IndexChunk(ctx, chunk("section", "d1", "Procedures and forms.", "Enrollment"))

	results, err := idx.Search(ctx, "enrollment", 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != "section" {
		t.Errorf("heading match should outrank body match, got %s first", results[0].ChunkID)
	}
}

func TestBleveIndex_DocumentFilterAndDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.IndexChunk(ctx, chunk("c1", "d1", "budget planning details"))
	_ = idx.IndexChunk(ctx, chunk("c2", "d2", "budget planning details"))

	results, err := idx.Search(ctx, "budget", 10, "d2")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "c2" {
		t.Errorf("document filter failed: %v", results)
	}

	if err := idx.DeleteDocument(ctx, "d2"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	count, _ := idx.Count()
	if count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}
	left, _ := idx.Search(ctx, "budget", 10, "")
	if len(left) != 1 || left[0].ChunkID != "c1" {
		t.Errorf("deleted chunks still searchable: %v", left)
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "   ", 10, "")
	if err != nil || results != nil {
		t.Errorf("blank query should return nothing: %v %v", results, err)
	}
}

func TestBleveIndex_ReopenExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chunks.bleve")
	idx, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	_ = idx.IndexChunk(context.Background(), chunk("c1", "d1", "persistent content"))
	idx.Close()

	reopened, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	count, _ := reopened.Count()
	if count != 1 {
		t.Errorf("reopened count = %d, want 1", count)
	}
}
