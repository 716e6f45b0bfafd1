package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kizami/internal/models"
)

// Boosts for the per-field disjunction: a hit in the heading path or topic
// keywords outranks the same hit buried in body text.
const (
	headingPathBoost   = 2.0
	topicKeywordsBoost = 1.5
)

// chunkDoc is the flattened form of a chunk that goes into the index.
// Heading path and topic keywords are joined so the standard analyzer
// tokenizes them like any text field.
type chunkDoc struct {
	Content       string `json:"content"`
	HeadingPath   string `json:"heading_path"`
	TopicKeywords string `json:"topic_keywords"`
	DocumentID    string `json:"document_id"`
	ChunkType     string `json:"chunk_type"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused so unchanged documents are not re-indexed on restart. If the mapping
// changes in code, remove the index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query term
	// matches the exact word it was indexed as.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("heading_path", textFieldMapping)
	docMapping.AddFieldMappingsAt("topic_keywords", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("document_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("chunk_type", keywordFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func toChunkDoc(chunk *models.DocumentChunk) chunkDoc {
	return chunkDoc{
		Content:       chunk.Content,
		HeadingPath:   strings.Join(chunk.HeadingPath, " "),
		TopicKeywords: strings.Join(chunk.TopicKeywords, " "),
		DocumentID:    chunk.DocumentID,
		ChunkType:     string(chunk.Type),
	}
}

// IndexChunk adds or replaces one chunk.
func (b *BleveIndex) IndexChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	if chunk == nil || chunk.ID == "" {
		return fmt.Errorf("chunk with id required")
	}
	return b.index.Index(chunk.ID, toChunkDoc(chunk))
}

// IndexChunks indexes chunks in one batch.
func (b *BleveIndex) IndexChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	batch := b.index.NewBatch()
	for _, chunk := range chunks {
		if chunk == nil || chunk.ID == "" {
			continue
		}
		if err := batch.Index(chunk.ID, toChunkDoc(chunk)); err != nil {
			return fmt.Errorf("batch index chunk %s: %w", chunk.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a boosted per-field disjunction and returns the top hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, documentID string) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")
	headingQuery := bleve.NewMatchQuery(query)
	headingQuery.SetField("heading_path")
	headingQuery.SetBoost(headingPathBoost)
	keywordsQuery := bleve.NewMatchQuery(query)
	keywordsQuery.SetField("topic_keywords")
	keywordsQuery.SetBoost(topicKeywordsBoost)

	var q blevequery.Query = bleve.NewDisjunctionQuery(contentQuery, headingQuery, keywordsQuery)
	if documentID != "" {
		docQuery := bleve.NewTermQuery(documentID)
		docQuery.SetField("document_id")
		q = bleve.NewConjunctionQuery(q, docQuery)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ChunkID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes one chunk from the index.
func (b *BleveIndex) Delete(ctx context.Context, chunkID string) error {
	return b.index.Delete(chunkID)
}

// DeleteDocument removes every chunk indexed under documentID.
func (b *BleveIndex) DeleteDocument(ctx context.Context, documentID string) error {
	docQuery := bleve.NewTermQuery(documentID)
	docQuery.SetField("document_id")
	req := bleve.NewSearchRequest(docQuery)
	req.Size = 10000
	results, err := b.index.Search(req)
	if err != nil {
		return fmt.Errorf("find document chunks: %w", err)
	}
	batch := b.index.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}
	return b.index.Batch(batch)
}

// Count returns the number of indexed chunks.
func (b *BleveIndex) Count() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
