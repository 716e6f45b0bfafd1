// Package chunker turns parsed document structure into retrieval-ready
// chunks: a bottom-up tree walk produces drafts, grouping merges undersized
// and related neighbors, then overlap and relationship passes finalize.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/semantic"
	"github.com/hyperjump/kizami/internal/structure"
	"github.com/hyperjump/kizami/pkg/utils"
)

const chunkingMethod = "hierarchical_semantic"

// Source identifies where a document came from.
type Source struct {
	FileID   string
	FileName string
}

// Chunker orchestrates the chunking pipeline for one document at a time.
// Safe for concurrent use; all per-document state lives on the stack.
type Chunker struct {
	parser   *structure.Parser
	detector *semantic.Detector
	logger   *zap.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets a logger for pipeline diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chunker) { c.logger = l }
}

// New creates a Chunker from its collaborators.
func New(parser *structure.Parser, detector *semantic.Detector, opts ...Option) *Chunker {
	c := &Chunker{parser: parser, detector: detector}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkDocument runs the full pipeline on one document. The only error is an
// invalid config; an empty document yields a valid empty result, and
// embedding trouble degrades the analysis instead of failing the run.
func (c *Chunker) ChunkDocument(ctx context.Context, text, docID string, src Source, cfg models.ChunkingConfig) (*models.ChunkingResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chunking config: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return &models.ChunkingResult{Chunks: []*models.DocumentChunk{}}, nil
	}

	s := c.parser.Parse(text)
	analysis := c.detector.Analyze(ctx, s.Nodes)

	totalTokens := 0
	for _, n := range s.Nodes {
		totalTokens += utils.CountTokens(n.Content)
	}
	acfg := AdaptiveConfig(cfg, totalTokens)

	var drafts []*draft
	for _, root := range buildTree(s) {
		drafts = append(drafts, c.chunkSubtree(root, acfg)...)
	}
	drafts = groupDrafts(drafts, analysis.Boundaries, acfg)

	chunks := c.materialize(drafts, docID, src, analysis)
	applyOverlap(chunks, acfg)
	assignRelationships(chunks)

	result := buildResult(chunks, analysis)
	if c.logger != nil {
		c.logger.Debug("document chunked",
			zap.String("document_id", docID),
			zap.Int("chunks", result.TotalChunks),
			zap.Int("tokens", result.TotalTokens),
			zap.Bool("degraded", result.Degraded))
	}
	return result, nil
}

// chunkSubtree walks a subtree bottom-up and returns its drafts in document
// order. Only headings have children, so an internal node is always a
// heading; its text attaches to the first child chunk when that fits.
func (c *Chunker) chunkSubtree(t *treeNode, cfg models.ChunkingConfig) []*draft {
	if len(t.children) == 0 {
		return splitOversized(draftFromNode(t), cfg)
	}

	var childDrafts []*draft
	for _, child := range t.children {
		if child.node.Type == models.NodeHeading || subtreeTokens(child) >= cfg.MinChunkSize {
			childDrafts = append(childDrafts, c.chunkSubtree(child, cfg)...)
		} else {
			// Small leaf subtree: keep it whole as one fragment for grouping.
			childDrafts = append(childDrafts, draftFromSubtree(child))
		}
	}

	if t.node.Type != models.NodeHeading {
		return childDrafts
	}
	heading := draftFromNode(t)
	if len(childDrafts) > 0 && heading.tokens+childDrafts[0].tokens <= cfg.MaxChunkSize {
		childDrafts[0] = prependHeading(heading, childDrafts[0])
		return childDrafts
	}
	return append([]*draft{heading}, childDrafts...)
}

// materialize turns drafts into immutable DocumentChunks with identity,
// provenance, density, and keywords.
func (c *Chunker) materialize(drafts []*draft, docID string, src Source, analysis *models.BoundaryAnalysis) []*models.DocumentChunk {
	now := time.Now().UTC()
	chunks := make([]*models.DocumentChunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = &models.DocumentChunk{
			ID:              fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
			DocumentID:      docID,
			Content:         d.content,
			Tokens:          d.tokens,
			Position:        i,
			HeadingPath:     d.headingPath,
			HierarchyLevel:  d.level,
			Type:            d.ctype,
			SemanticDensity: densityFor(d, analysis),
			TopicKeywords:   semantic.ExtractKeywords(d.content, 5),
			Source: models.ChunkProvenance{
				SourceFileID:   src.FileID,
				SourceFileName: src.FileName,
				ChunkingMethod: chunkingMethod,
				CreatedAt:      now,
			},
		}
	}
	return chunks
}

// densityFor averages the coherence of the analysis segments overlapping the
// draft's node span. Drafts outside any segment inherit the overall score.
func densityFor(d *draft, analysis *models.BoundaryAnalysis) float64 {
	sum, n := 0.0, 0
	for _, seg := range analysis.Segments {
		if seg.EndPosition < d.startPos || seg.StartPosition > d.endPos {
			continue
		}
		sum += seg.Coherence
		n++
	}
	if n == 0 {
		return analysis.OverallCoherence
	}
	return sum / float64(n)
}

func buildResult(chunks []*models.DocumentChunk, analysis *models.BoundaryAnalysis) *models.ChunkingResult {
	result := &models.ChunkingResult{
		Chunks:      chunks,
		TotalChunks: len(chunks),
		Degraded:    analysis.Degraded,
	}
	if len(chunks) == 0 {
		return result
	}
	densitySum := 0.0
	for _, c := range chunks {
		result.TotalTokens += c.Tokens
		densitySum += c.SemanticDensity
	}
	result.AverageChunkSize = float64(result.TotalTokens) / float64(len(chunks))
	result.SemanticCoherence = densitySum / float64(len(chunks))

	pairs := len(chunks) - 1
	if pairs > 0 {
		overlapped, preserved := 0, 0
		for i := 0; i < pairs; i++ {
			if chunks[i].HasOverlapNext {
				overlapped++
			}
			if sharesHierarchy(chunks[i], chunks[i+1]) {
				preserved++
			}
		}
		result.OverlapEfficiency = float64(overlapped) / float64(pairs)
		result.HierarchyPreservation = float64(preserved) / float64(pairs)
	} else {
		result.HierarchyPreservation = 1.0
	}
	return result
}

// sharesHierarchy reports whether two adjacent chunks keep hierarchical
// continuity: a shared heading-path prefix, or a flat document where neither
// has one.
func sharesHierarchy(a, b *models.DocumentChunk) bool {
	if len(a.HeadingPath) == 0 && len(b.HeadingPath) == 0 {
		return true
	}
	if len(a.HeadingPath) == 0 || len(b.HeadingPath) == 0 {
		return false
	}
	return a.HeadingPath[0] == b.HeadingPath[0]
}

// EmbedText returns the text to embed for a chunk. With heading context
// enabled, the joined heading path prefixes the content so section wording
// informs the vector.
func EmbedText(c *models.DocumentChunk, includeHeadingContext bool) string {
	if !includeHeadingContext || len(c.HeadingPath) == 0 {
		return c.Content
	}
	return strings.Join(c.HeadingPath, " > ") + "\n" + c.Content
}
