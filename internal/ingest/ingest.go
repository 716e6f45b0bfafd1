// Package ingest runs the document pipeline: extract text, chunk it,
// embed the chunks, and persist everything into storage plus the vector
// and keyword indices.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/chunker"
	"github.com/hyperjump/kizami/internal/embedding"
	"github.com/hyperjump/kizami/internal/extract"
	"github.com/hyperjump/kizami/internal/fileid"
	"github.com/hyperjump/kizami/internal/keyword"
	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/storage"
	"github.com/hyperjump/kizami/internal/vector"
)

// Ingestor ingests documents into storage, the vector store, and the
// keyword index.
type Ingestor struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	store        vector.Store
	keywordIndex keyword.Index
	chunker      *chunker.Chunker
	extractor    *extract.Extractor
	cfg          models.ChunkingConfig
	logger       *zap.Logger // optional; when set, logs debug events
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for debug output (file ingested, document deleted, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// New creates an ingestor with the given dependencies.
// extractor may be nil; when nil, IngestFile treats all files as plain text.
func New(
	st storage.Storage,
	embedder embedding.Embedder,
	store vector.Store,
	keywordIndex keyword.Index,
	ck *chunker.Chunker,
	extractor *extract.Extractor,
	cfg models.ChunkingConfig,
	opts ...Option,
) *Ingestor {
	ing := &Ingestor{
		storage:      st,
		embedder:     embedder,
		store:        store,
		keywordIndex: keywordIndex,
		chunker:      ck,
		extractor:    extractor,
		cfg:          cfg,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestText chunks, embeds, and indexes already-extracted text under the
// given document identity. Any existing document with the same ID is
// replaced. Returns the stored document record.
func (ing *Ingestor) IngestText(ctx context.Context, docID, title, text string, doc models.Document) (*models.Document, error) {
	result, err := ing.chunker.ChunkDocument(ctx, text, docID, chunker.Source{
		FileID:   docID,
		FileName: title,
	}, ing.cfg)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}

	texts := make([]string, len(result.Chunks))
	for i, ch := range result.Chunks {
		texts[i] = chunker.EmbedText(ch, ing.cfg.IncludeHeadingContext)
	}
	var embeddings [][]float32
	if len(texts) > 0 {
		embeddings, err = ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(embeddings) != len(result.Chunks) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(result.Chunks))
		}
		for i := range result.Chunks {
			result.Chunks[i].Embedding = embeddings[i]
		}
	}

	// Embedding is the fallible step; only write once it has succeeded so a
	// failed run leaves no half-ingested document behind.
	if err := ing.DeleteDocument(ctx, docID); err != nil {
		return nil, fmt.Errorf("replace existing document: %w", err)
	}

	doc.ID = docID
	doc.Title = title
	doc.TotalChunks = result.TotalChunks
	doc.TotalTokens = result.TotalTokens
	doc.SemanticCoherence = result.SemanticCoherence
	doc.Degraded = result.Degraded
	if err := ing.storage.CreateDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if err := ing.storeChunks(ctx, result.Chunks); err != nil {
		_ = ing.DeleteDocument(ctx, docID)
		return nil, err
	}

	if ing.logger != nil {
		ing.logger.Debug("document ingested",
			zap.String("document_id", docID),
			zap.Int("chunks", result.TotalChunks),
			zap.Int("tokens", result.TotalTokens),
			zap.Bool("degraded", result.Degraded))
	}
	return &doc, nil
}

func (ing *Ingestor) storeChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := ing.storage.BatchCreateChunks(ctx, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	for _, ch := range chunks {
		if err := ing.store.Upsert(ctx, ch, ch.Embedding); err != nil {
			return fmt.Errorf("index vectors: %w", err)
		}
	}
	if err := ing.keywordIndex.IndexChunks(ctx, chunks); err != nil {
		return fmt.Errorf("index keywords: %w", err)
	}
	return nil
}

// IngestBytes extracts text from raw file content (uploads) and ingests it.
// The document ID is generated; name only provides the title and the
// extension hint for extraction.
func (ing *Ingestor) IngestBytes(ctx context.Context, name string, content []byte) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	text, err := ing.extractText(content, ext)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	docID := uuid.New().String()
	return ing.IngestText(ctx, docID, filepath.Base(name), text, models.Document{
		FileSize: int64(len(content)),
		ModTime:  time.Now().UTC(),
	})
}

// IngestFile reads a file from path and ingests it. The document ID is derived
// from the absolute path so re-ingesting updates the same document. If
// allowedExts is non-nil and non-empty, the file's extension must be in the
// list (case-insensitive). Skips the file when it is already ingested with the
// same mtime and size (incremental sync); a skipped file returns the stored
// document.
func (ing *Ingestor) IngestFile(ctx context.Context, path string, allowedExts []string) (*models.Document, error) {
	if ing.logger != nil {
		ing.logger.Debug("ingesting file", zap.String("path", path))
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	if doc := ing.unchanged(ctx, absPath, info); doc != nil {
		if ing.logger != nil {
			ing.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		}
		return doc, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	text, err := ing.extractText(content, ext)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}

	docID := fileid.FileDocID(absPath)
	doc, err := ing.IngestText(ctx, docID, filepath.Base(absPath), text, models.Document{
		SourcePath: absPath,
		FileSize:   info.Size(),
		ModTime:    info.ModTime().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if ing.logger != nil {
		ing.logger.Debug("file ingested", zap.String("path", absPath), zap.String("document_id", docID))
	}
	return doc, nil
}

// unchanged returns the stored document when the file at absPath is already
// ingested with the same size and mtime, nil otherwise. Mtime is compared at
// second precision to survive the database round trip.
func (ing *Ingestor) unchanged(ctx context.Context, absPath string, info os.FileInfo) *models.Document {
	doc, err := ing.storage.GetDocumentBySourcePath(ctx, absPath)
	if err != nil || doc == nil {
		return nil
	}
	if doc.FileSize != info.Size() || doc.ModTime.Unix() != info.ModTime().Unix() {
		return nil
	}
	return doc
}

// IngestDirectory walks dir recursively and ingests each regular file whose
// extension is in allowedExts (if non-nil and non-empty; otherwise all files).
// Returns the number of files ingested and the first error encountered, if any.
func (ing *Ingestor) IngestDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		// Resolve symlinks so we only ingest regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil {
			return nil
		}
		if !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := ing.IngestFile(ctx, path, allowedExts); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// DeleteDocument removes a document from all indices and storage. Deleting a
// document that does not exist is a no-op.
func (ing *Ingestor) DeleteDocument(ctx context.Context, id string) error {
	chunks, err := ing.storage.GetChunksByDocumentID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	if err := ing.keywordIndex.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	chunkIDs := make([]string, len(chunks))
	for i, ch := range chunks {
		chunkIDs[i] = ch.ID
	}
	if err := ing.store.Remove(ctx, chunkIDs); err != nil {
		return fmt.Errorf("failed to delete from vector store: %w", err)
	}
	if err := ing.storage.DeleteChunksByDocumentID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := ing.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if ing.logger != nil {
		ing.logger.Debug("document deleted", zap.String("document_id", id))
	}
	return nil
}

func (ing *Ingestor) extractText(content []byte, ext string) (string, error) {
	if ing.extractor != nil {
		return ing.extractor.ExtractBytes(content, ext)
	}
	return string(content), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
