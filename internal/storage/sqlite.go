// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kizami/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		source_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		mod_time TIMESTAMP,
		total_chunks INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		semantic_coherence REAL NOT NULL DEFAULT 0,
		degraded INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source_path ON documents(source_path);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		tokens INTEGER NOT NULL,
		position INTEGER NOT NULL,
		heading_path TEXT,
		hierarchy_level INTEGER NOT NULL DEFAULT 0,
		chunk_type TEXT NOT NULL,
		semantic_density REAL NOT NULL DEFAULT 0,
		topic_keywords TEXT,
		has_overlap_previous INTEGER NOT NULL DEFAULT 0,
		has_overlap_next INTEGER NOT NULL DEFAULT 0,
		overlap_text TEXT,
		prev_chunk_id TEXT,
		next_chunk_id TEXT,
		sibling_ids TEXT,
		child_ids TEXT,
		source TEXT,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_position ON document_chunks(document_id, position);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, source_path, file_size, mod_time, total_chunks,
		 total_tokens, semantic_coherence, degraded, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.SourcePath, doc.FileSize, doc.ModTime, doc.TotalChunks,
		doc.TotalTokens, doc.SemanticCoherence, doc.Degraded, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

const documentColumns = `id, title, source_path, file_size, mod_time, total_chunks,
	total_tokens, semantic_coherence, degraded, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(&doc.ID, &doc.Title, &doc.SourcePath, &doc.FileSize, &doc.ModTime,
		&doc.TotalChunks, &doc.TotalTokens, &doc.SemanticCoherence, &doc.Degraded,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return doc, err
}

// GetDocumentBySourcePath returns the document ingested from the given path,
// or nil if none exists.
func (s *SQLiteStorage) GetDocumentBySourcePath(ctx context.Context, path string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE source_path = ?`, path)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return doc, err
}

// UpdateDocument updates an existing document.
func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, source_path = ?, file_size = ?, mod_time = ?,
		 total_chunks = ?, total_tokens = ?, semantic_coherence = ?, degraded = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Title, doc.SourcePath, doc.FileSize, doc.ModTime,
		doc.TotalChunks, doc.TotalTokens, doc.SemanticCoherence, doc.Degraded, doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", doc.ID)
	}
	return nil
}

// DeleteDocument removes a document by ID. Its chunks cascade.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns documents with offset and limit, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

const chunkColumns = `id, document_id, content, tokens, position, heading_path,
	hierarchy_level, chunk_type, semantic_density, topic_keywords,
	has_overlap_previous, has_overlap_next, overlap_text,
	prev_chunk_id, next_chunk_id, sibling_ids, child_ids, source`

func scanChunk(row interface{ Scan(...any) error }) (*models.DocumentChunk, error) {
	var (
		chunk       models.DocumentChunk
		headingPath sql.NullString
		keywords    sql.NullString
		overlapText sql.NullString
		prevID      sql.NullString
		nextID      sql.NullString
		siblingIDs  sql.NullString
		childIDs    sql.NullString
		source      sql.NullString
	)
	err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &chunk.Tokens, &chunk.Position,
		&headingPath, &chunk.HierarchyLevel, &chunk.Type, &chunk.SemanticDensity, &keywords,
		&chunk.HasOverlapPrevious, &chunk.HasOverlapNext, &overlapText,
		&prevID, &nextID, &siblingIDs, &childIDs, &source)
	if err != nil {
		return nil, err
	}
	chunk.OverlapText = overlapText.String
	chunk.PrevChunkID = prevID.String
	chunk.NextChunkID = nextID.String
	if headingPath.String != "" {
		if err := json.Unmarshal([]byte(headingPath.String), &chunk.HeadingPath); err != nil {
			return nil, fmt.Errorf("unmarshal heading path: %w", err)
		}
	}
	if keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &chunk.TopicKeywords); err != nil {
			return nil, fmt.Errorf("unmarshal topic keywords: %w", err)
		}
	}
	if siblingIDs.String != "" {
		if err := json.Unmarshal([]byte(siblingIDs.String), &chunk.SiblingIDs); err != nil {
			return nil, fmt.Errorf("unmarshal sibling ids: %w", err)
		}
	}
	if childIDs.String != "" {
		if err := json.Unmarshal([]byte(childIDs.String), &chunk.ChildIDs); err != nil {
			return nil, fmt.Errorf("unmarshal child ids: %w", err)
		}
	}
	if source.String != "" {
		if err := json.Unmarshal([]byte(source.String), &chunk.Source); err != nil {
			return nil, fmt.Errorf("unmarshal source: %w", err)
		}
	}
	return &chunk, nil
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE id = ?`, id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, err
}

// GetChunksByDocumentID returns all chunks for a document in document order.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = ? ORDER BY position`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteChunksByDocumentID removes all chunks for a document.
func (s *SQLiteStorage) DeleteChunksByDocumentID(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, docID)
	return err
}

// BatchCreateChunks inserts chunks in one transaction. Either all chunks are
// persisted or none are.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (`+chunkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		headingPath, err := marshalOrEmpty(chunk.HeadingPath)
		if err != nil {
			return fmt.Errorf("marshal heading path: %w", err)
		}
		keywords, err := marshalOrEmpty(chunk.TopicKeywords)
		if err != nil {
			return fmt.Errorf("marshal topic keywords: %w", err)
		}
		siblingIDs, err := marshalOrEmpty(chunk.SiblingIDs)
		if err != nil {
			return fmt.Errorf("marshal sibling ids: %w", err)
		}
		childIDs, err := marshalOrEmpty(chunk.ChildIDs)
		if err != nil {
			return fmt.Errorf("marshal child ids: %w", err)
		}
		source, err := json.Marshal(chunk.Source)
		if err != nil {
			return fmt.Errorf("marshal source: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.Content, chunk.Tokens, chunk.Position,
			headingPath, chunk.HierarchyLevel, chunk.Type, chunk.SemanticDensity, keywords,
			chunk.HasOverlapPrevious, chunk.HasOverlapNext, chunk.OverlapText,
			chunk.PrevChunkID, chunk.NextChunkID, siblingIDs, childIDs, string(source),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func marshalOrEmpty(v []string) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
