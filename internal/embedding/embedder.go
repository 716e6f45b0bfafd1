// Package embedding provides text embedding with an ONNX backend, a
// deterministic local fallback, and an order-preserving batch client.
package embedding

import "context"

// Embedder produces unit-normalized vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
