package embedding

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultBatchSize = 32

// BatchClient wraps an Embedder with batched, order-preserving embedding and
// local degradation: when the backend fails or returns a vector of the wrong
// dimension, a deterministic fallback embedding is substituted so analysis
// degrades instead of failing. Batches run concurrently, but result slot i
// always holds the embedding of input text i.
type BatchClient struct {
	backend   Embedder
	fallback  *FallbackEmbedder
	batchSize int
	logger    *zap.Logger

	mu       sync.Mutex
	degraded bool
}

// BatchOption configures a BatchClient.
type BatchOption func(*BatchClient)

// WithBatchSize sets the number of texts per backend call.
func WithBatchSize(n int) BatchOption {
	return func(c *BatchClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithBatchLogger sets a logger for degradation events.
func WithBatchLogger(l *zap.Logger) BatchOption {
	return func(c *BatchClient) { c.logger = l }
}

// NewBatchClient wraps backend. When backend is nil, every call uses the
// fallback embedder directly.
func NewBatchClient(backend Embedder, dimensions int, opts ...BatchOption) *BatchClient {
	c := &BatchClient{
		backend:   backend,
		fallback:  NewFallbackEmbedder(dimensions),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dimensions returns the configured embedding dimension.
func (c *BatchClient) Dimensions() int {
	return c.fallback.Dimensions()
}

// Degraded reports whether any call so far substituted fallback embeddings.
func (c *BatchClient) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

func (c *BatchClient) markDegraded(reason string, err error) {
	c.mu.Lock()
	c.degraded = true
	c.mu.Unlock()
	if c.logger != nil {
		c.logger.Warn("embedding degraded to fallback", zap.String("reason", reason), zap.Error(err))
	}
}

// Embed embeds a single text, substituting the fallback on any backend error.
func (c *BatchClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts and returns one vector per input, in input order.
// The returned error is always nil for a non-nil input slice; failures are
// absorbed by fallback substitution and reported through Degraded.
func (c *BatchClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	if c.backend == nil {
		vecs, _ := c.fallback.EmbedBatch(ctx, texts)
		return vecs, nil
	}

	var wg sync.WaitGroup
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			c.embedSlice(ctx, texts[start:end], out[start:end])
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

// embedSlice fills dst with embeddings for texts, falling back per batch on
// error and per vector on dimension mismatch.
func (c *BatchClient) embedSlice(ctx context.Context, texts []string, dst [][]float32) {
	vecs, err := c.backend.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		c.markDegraded("backend batch failed", err)
		for i, t := range texts {
			dst[i], _ = c.fallback.Embed(ctx, t)
		}
		return
	}
	want := c.fallback.Dimensions()
	for i, v := range vecs {
		if len(v) != want {
			// Dimension mismatch is an error local to the embedding call;
			// it never propagates past this substitution layer.
			c.markDegraded("dimension mismatch", nil)
			dst[i], _ = c.fallback.Embed(ctx, texts[i])
			continue
		}
		dst[i] = v
	}
}

// Close closes the backend embedder, if any.
func (c *BatchClient) Close() error {
	if c.backend != nil {
		return c.backend.Close()
	}
	return nil
}
