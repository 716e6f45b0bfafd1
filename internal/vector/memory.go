package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kizami/internal/models"
)

// MemoryStore is an in-memory brute-force vector store. Suitable for tests
// and corpora up to a few hundred thousand chunks.
type MemoryStore struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	chunks     map[string]*models.DocumentChunk
	slot       map[string]int
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store for vectors of the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{
		dimensions: dimensions,
		chunks:     make(map[string]*models.DocumentChunk),
		slot:       make(map[string]int),
	}, nil
}

// Upsert stores or replaces the chunk and its vector.
func (m *MemoryStore) Upsert(ctx context.Context, chunk *models.DocumentChunk, vec []float32) error {
	if chunk == nil || chunk.ID == "" {
		return fmt.Errorf("chunk with id required")
	}
	if len(vec) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	cp := make([]float32, m.dimensions)
	copy(cp, vec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.slot[chunk.ID]; ok {
		m.vectors[i] = cp
	} else {
		m.slot[chunk.ID] = len(m.ids)
		m.ids = append(m.ids, chunk.ID)
		m.vectors = append(m.vectors, cp)
	}
	m.chunks[chunk.ID] = chunk
	return nil
}

// Query returns the top-k chunks passing f, ranked by cosine similarity.
func (m *MemoryStore) Query(ctx context.Context, vec []float32, topK int, f Filters) ([]*QueryMatch, error) {
	if len(vec) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	matches := make([]*QueryMatch, 0, len(m.ids))
	for i, id := range m.ids {
		chunk := m.chunks[id]
		if !f.Match(chunk) {
			continue
		}
		matches = append(matches, &QueryMatch{Chunk: chunk, Score: CosineSimilarity(vec, m.vectors[i])})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// GetByFilter returns all chunks passing f, in insertion order.
func (m *MemoryStore) GetByFilter(ctx context.Context, f Filters) ([]*models.DocumentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.DocumentChunk
	for _, id := range m.ids {
		if chunk := m.chunks[id]; f.Match(chunk) {
			out = append(out, chunk)
		}
	}
	return out, nil
}

// Get returns the chunk with the given id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*models.DocumentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, nil
}

// Remove deletes chunks by id, rebuilding the dense slices.
func (m *MemoryStore) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := make([]string, 0, len(m.ids))
	newVectors := make([][]float32, 0, len(m.vectors))
	for i, id := range m.ids {
		if removeSet[id] {
			delete(m.chunks, id)
			continue
		}
		newIDs = append(newIDs, id)
		newVectors = append(newVectors, m.vectors[i])
	}
	m.ids = newIDs
	m.vectors = newVectors
	m.slot = make(map[string]int, len(m.ids))
	for i, id := range m.ids {
		m.slot[id] = i
	}
	return nil
}

// Save persists the store to path. Format: dimensions (4), n (4), then per
// record: idLen (4), id bytes, vector (dimensions*4 bytes), chunkLen (4),
// chunk JSON. Parent directories are created if needed.
func (m *MemoryStore) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		idBytes := []byte(id)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
		chunkJSON, err := json.Marshal(m.chunks[id])
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", id, err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(chunkJSON))); err != nil {
			return fmt.Errorf("write chunk len: %w", err)
		}
		if _, err := f.Write(chunkJSON); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
	}
	return nil
}

// Load replaces the store contents from path. A missing file is not an
// error; the store is left unchanged. Dimensions must match.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, store expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = make([]string, 0, n)
	m.vectors = make([][]float32, 0, n)
	m.chunks = make(map[string]*models.DocumentChunk, n)
	m.slot = make(map[string]int, n)
	vecBuf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		var chunkLen uint32
		if err := binary.Read(f, binary.LittleEndian, &chunkLen); err != nil {
			return fmt.Errorf("read chunk len: %w", err)
		}
		chunkBytes := make([]byte, chunkLen)
		if _, err := io.ReadFull(f, chunkBytes); err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
		var chunk models.DocumentChunk
		if err := json.Unmarshal(chunkBytes, &chunk); err != nil {
			return fmt.Errorf("unmarshal chunk: %w", err)
		}
		id := string(idBytes)
		m.slot[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, bytesToFloat32Slice(vecBuf))
		m.chunks[id] = &chunk
	}
	return nil
}

// Size returns the number of stored chunks.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
