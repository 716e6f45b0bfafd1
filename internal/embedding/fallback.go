package embedding

import (
	"context"
	"math"
)

// FallbackEmbedder is a deterministic, dependency-free embedder. It derives a
// fixed-dimension unit vector from the text hash so the same text always maps
// to the same embedding. It substitutes for the external embedding service
// when that service is unavailable, and doubles as the test embedder.
type FallbackEmbedder struct {
	dimensions int
}

// NewFallbackEmbedder returns a deterministic embedder of the given dimensions.
func NewFallbackEmbedder(dimensions int) *FallbackEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &FallbackEmbedder{dimensions: dimensions}
}

// Embed returns a hash-derived embedding, normalized to unit length so cosine
// similarity stays within [0,1] by construction.
func (e *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb, nil
}

// EmbedBatch embeds each text in order.
func (e *FallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *FallbackEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *FallbackEmbedder) Close() error {
	return nil
}
