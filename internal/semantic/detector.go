package semantic

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/embedding"
	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/vector"
	"github.com/hyperjump/kizami/pkg/utils"
)

const (
	defaultSimilarityThreshold = 0.7
	defaultWindowSize          = 3
	defaultTopicOverlap        = 0.3
	defaultMinSegmentTokens    = 100
	// Split points need at least this boundary strength to be recommended.
	splitPointStrength = 0.6
)

// Detector analyzes a node sequence for semantic boundaries. Analysis always
// degrades rather than fails: embedding errors are absorbed by the embedder's
// fallback layer.
type Detector struct {
	embedder            embedding.Embedder
	similarityThreshold float64
	windowSize          int
	topicOverlap        float64
	minSegmentTokens    int
	logger              *zap.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithSimilarityThreshold overrides the absolute similarity threshold (default 0.7).
func WithSimilarityThreshold(t float64) DetectorOption {
	return func(d *Detector) {
		if t > 0 && t <= 1 {
			d.similarityThreshold = t
		}
	}
}

// WithMinSegmentTokens overrides the minimum accumulated tokens before a
// recommended split point (default 100).
func WithMinSegmentTokens(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.minSegmentTokens = n
		}
	}
}

// WithLogger sets a logger for degradation events.
func WithLogger(l *zap.Logger) DetectorOption {
	return func(d *Detector) { d.logger = l }
}

// NewDetector creates a boundary detector using the given embedder.
func NewDetector(embedder embedding.Embedder, opts ...DetectorOption) *Detector {
	d := &Detector{
		embedder:            embedder,
		similarityThreshold: defaultSimilarityThreshold,
		windowSize:          defaultWindowSize,
		topicOverlap:        defaultTopicOverlap,
		minSegmentTokens:    defaultMinSegmentTokens,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// unit is one embeddable text unit backed by a node.
type unit struct {
	node     *models.HierarchyNode
	text     string
	tokens   int
	keywords []string
}

// Analyze computes boundaries, coherence segments, overall coherence, and
// recommended split points for the node sequence. Never returns an error;
// the analysis for empty input is empty and valid.
func (d *Detector) Analyze(ctx context.Context, nodes []*models.HierarchyNode) *models.BoundaryAnalysis {
	units := buildUnits(nodes)
	analysis := &models.BoundaryAnalysis{OverallCoherence: 1.0}
	if len(units) == 0 {
		return analysis
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.text
	}
	embeddings, err := d.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(embeddings) != len(units) {
		// Last line of defense; the batch client normally absorbs failures.
		if d.logger != nil {
			d.logger.Warn("embedding batch failed, using local fallback", zap.Error(err))
		}
		fb := embedding.NewFallbackEmbedder(d.embedder.Dimensions())
		embeddings, _ = fb.EmbedBatch(ctx, texts)
		analysis.Degraded = true
	}
	if deg, ok := d.embedder.(interface{ Degraded() bool }); ok && deg.Degraded() {
		analysis.Degraded = true
	}

	if len(units) == 1 {
		analysis.Segments = d.buildSegments(units, embeddings, nil)
		return analysis
	}

	sims := make([]float64, len(units)-1)
	for i := 0; i < len(units)-1; i++ {
		sims[i] = vector.CosineSimilarity(embeddings[i], embeddings[i+1])
	}

	boundaries := make([]*models.SemanticBoundary, len(sims))
	for i, sim := range sims {
		boundaries[i] = d.classifyBoundary(i, sim, sims, units)
	}
	analysis.Boundaries = boundaries
	analysis.Segments = d.buildSegments(units, embeddings, boundaries)
	analysis.OverallCoherence = mean(sims)
	analysis.RecommendedSplitPoints = d.splitPoints(units, boundaries)
	return analysis
}

// buildUnits converts non-empty nodes into text units, prefixing each with
// its heading path for embedding context.
func buildUnits(nodes []*models.HierarchyNode) []unit {
	units := make([]unit, 0, len(nodes))
	for _, n := range nodes {
		content := strings.TrimSpace(n.Content)
		if content == "" {
			continue
		}
		text := content
		if len(n.Path) > 0 {
			text = strings.Join(n.Path, " > ") + "\n" + content
		}
		units = append(units, unit{
			node:     n,
			text:     text,
			tokens:   utils.CountTokens(content),
			keywords: ExtractKeywords(content, topKeywords),
		})
	}
	return units
}

// classifyBoundary scores the gap after unit i. The ±windowSize local average
// excludes the boundary under evaluation so a genuine drop is not diluted by
// itself.
func (d *Detector) classifyBoundary(i int, sim float64, sims []float64, units []unit) *models.SemanticBoundary {
	windowSum, windowCount := 0.0, 0
	for j := i - d.windowSize; j <= i+d.windowSize; j++ {
		if j < 0 || j >= len(sims) || j == i {
			continue
		}
		windowSum += sims[j]
		windowCount++
	}
	windowAvg := sim
	if windowCount > 0 {
		windowAvg = windowSum / float64(windowCount)
	}

	drop := windowAvg - sim
	if drop < 0 {
		drop = 0
	}
	strength := drop
	if sim < d.similarityThreshold {
		strength += d.similarityThreshold - sim
	}
	strength = clamp01(strength)

	var btype models.BoundaryType
	switch {
	case sim < 0.5*d.similarityThreshold:
		btype = models.BoundaryStrong
	case sim < d.similarityThreshold:
		btype = models.BoundaryModerate
	default:
		btype = models.BoundaryWeak
	}

	return &models.SemanticBoundary{
		Position:       units[i].node.Position,
		Strength:       strength,
		SimilarityDrop: drop,
		TopicShift:     KeywordOverlap(units[i].keywords, units[i+1].keywords) < d.topicOverlap,
		Type:           btype,
	}
}

// buildSegments groups units into coherence segments, cutting at strong
// boundaries and at moderate boundaries with a topic shift.
func (d *Detector) buildSegments(units []unit, embeddings [][]float32, boundaries []*models.SemanticBoundary) []*models.SemanticSegment {
	var segments []*models.SemanticSegment
	start := 0
	for i := 0; i <= len(units)-1; i++ {
		cut := i == len(units)-1
		if !cut && i < len(boundaries) {
			b := boundaries[i]
			cut = b.Type == models.BoundaryStrong || (b.Type == models.BoundaryModerate && b.TopicShift)
		}
		if !cut {
			continue
		}
		segments = append(segments, d.makeSegment(units[start:i+1], embeddings[start:i+1]))
		start = i + 1
	}
	for i, seg := range segments {
		if i > 0 {
			seg.SimilarityToPrev = vector.CosineSimilarity(segments[i-1].Embedding, seg.Embedding)
		}
		if i < len(segments)-1 {
			seg.SimilarityToNext = vector.CosineSimilarity(seg.Embedding, segments[i+1].Embedding)
		}
	}
	return segments
}

func (d *Detector) makeSegment(units []unit, embeddings [][]float32) *models.SemanticSegment {
	contents := make([]string, len(units))
	for i, u := range units {
		contents[i] = u.node.Content
	}
	content := strings.Join(contents, " ")

	// Coherence is the mean pairwise similarity of the segment's embeddings;
	// a singleton segment is perfectly coherent.
	coherence := 1.0
	if len(embeddings) > 1 {
		sum, pairs := 0.0, 0
		for i := 0; i < len(embeddings); i++ {
			for j := i + 1; j < len(embeddings); j++ {
				sum += vector.CosineSimilarity(embeddings[i], embeddings[j])
				pairs++
			}
		}
		coherence = sum / float64(pairs)
	}

	return &models.SemanticSegment{
		StartPosition: units[0].node.Position,
		EndPosition:   units[len(units)-1].node.Position,
		Content:       content,
		Coherence:     coherence,
		TopicKeywords: ExtractKeywords(content, topKeywords),
		Embedding:     averageEmbedding(embeddings),
	}
}

// splitPoints recommends boundary positions of sufficient strength whose
// preceding accumulated text already exceeds the minimum segment size,
// preventing over-fragmentation.
func (d *Detector) splitPoints(units []unit, boundaries []*models.SemanticBoundary) []int {
	var points []int
	accumulated := 0
	for i, b := range boundaries {
		accumulated += units[i].tokens
		if b.Strength >= splitPointStrength && accumulated >= d.minSegmentTokens {
			points = append(points, b.Position)
			accumulated = 0
		}
	}
	return points
}

func averageEmbedding(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}
	avg := make([]float32, len(embeddings[0]))
	for _, e := range embeddings {
		for i, v := range e {
			avg[i] += v
		}
	}
	n := float32(len(embeddings))
	for i := range avg {
		avg[i] /= n
	}
	utils.NormalizeL2(avg)
	return avg
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
