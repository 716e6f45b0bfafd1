package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

// failingEmbedder always errors, to exercise fallback substitution.
type failingEmbedder struct{ dims int }

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("service unavailable")
}
func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("service unavailable")
}
func (f *failingEmbedder) Dimensions() int { return f.dims }
func (f *failingEmbedder) Close() error    { return nil }

// wrongDimEmbedder returns vectors of the wrong length.
type wrongDimEmbedder struct{ dims int }

func (w *wrongDimEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, w.dims+3), nil
}
func (w *wrongDimEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, w.dims+3)
	}
	return out, nil
}
func (w *wrongDimEmbedder) Dimensions() int { return w.dims }
func (w *wrongDimEmbedder) Close() error    { return nil }

func TestFallbackEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewFallbackEmbedder(16)
	ctx := context.Background()
	a1, _ := e.Embed(ctx, "same text")
	a2, _ := e.Embed(ctx, "same text")
	b, _ := e.Embed(ctx, "different text")

	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatal("same text must yield identical embeddings")
		}
	}
	same := true
	for i := range a1 {
		if a1[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should yield different embeddings")
	}

	var norm float64
	for _, v := range a1 {
		norm += float64(v * v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
		t.Errorf("embedding norm = %f, want 1.0", math.Sqrt(norm))
	}
}

func TestBatchClient_PreservesOrder(t *testing.T) {
	c := NewBatchClient(NewFallbackEmbedder(8), 8, WithBatchSize(3))
	ctx := context.Background()

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("unit %d", i)
	}
	got, err := c.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(got), len(texts))
	}
	ref := NewFallbackEmbedder(8)
	for i, text := range texts {
		want, _ := ref.Embed(ctx, text)
		for j := range want {
			if got[i][j] != want[j] {
				t.Fatalf("slot %d does not hold embedding of input %d", i, i)
			}
		}
	}
	if c.Degraded() {
		t.Error("healthy backend should not be flagged degraded")
	}
}

func TestBatchClient_FallsBackOnBackendFailure(t *testing.T) {
	c := NewBatchClient(&failingEmbedder{dims: 8}, 8)
	ctx := context.Background()
	vecs, err := c.EmbedBatch(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("failure must be absorbed, got error %v", err)
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Errorf("vector %d len = %d, want 8", i, len(v))
		}
	}
	if !c.Degraded() {
		t.Error("fallback substitution should set Degraded")
	}
}

func TestBatchClient_SubstitutesOnDimensionMismatch(t *testing.T) {
	c := NewBatchClient(&wrongDimEmbedder{dims: 8}, 8)
	ctx := context.Background()
	vecs, err := c.EmbedBatch(ctx, []string{"x"})
	if err != nil {
		t.Fatalf("dimension mismatch must not propagate: %v", err)
	}
	if len(vecs[0]) != 8 {
		t.Errorf("substituted vector len = %d, want 8", len(vecs[0]))
	}
	if !c.Degraded() {
		t.Error("dimension mismatch should set Degraded")
	}
}

func TestBatchClient_NilBackend(t *testing.T) {
	c := NewBatchClient(nil, 4)
	vecs, err := c.EmbedBatch(context.Background(), []string{"a"})
	if err != nil || len(vecs) != 1 || len(vecs[0]) != 4 {
		t.Fatalf("nil backend should use fallback directly: %v %v", vecs, err)
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Put("a", []float32{1})
	c.Put("b", []float32{2})
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Put("c", []float32{3}) // evicts b, the least recently used
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive eviction")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestHashString_NonNegative(t *testing.T) {
	for _, s := range []string{"", "a", "some longer text with unicode ü"} {
		if HashString(s) < 0 {
			t.Errorf("HashString(%q) negative", s)
		}
	}
}
