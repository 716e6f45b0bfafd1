package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/chunker"
	"github.com/hyperjump/kizami/internal/config"
	"github.com/hyperjump/kizami/internal/embedding"
	"github.com/hyperjump/kizami/internal/extract"
	"github.com/hyperjump/kizami/internal/ingest"
	"github.com/hyperjump/kizami/internal/keyword"
	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/retriever"
	"github.com/hyperjump/kizami/internal/semantic"
	"github.com/hyperjump/kizami/internal/storage"
	"github.com/hyperjump/kizami/internal/structure"
	"github.com/hyperjump/kizami/internal/vector"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()

	st, err := storage.NewSQLiteStorage(filepath.Join(dir, "kizami.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	store, err := vector.NewMemoryStore(16)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { kw.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	embedder := embedding.NewFallbackEmbedder(16)
	ck := chunker.New(structure.NewParser(), semantic.NewDetector(embedder))
	ing := ingest.New(st, embedder, store, kw, ck, extract.NewExtractor(), cfg.Chunking.ToModel())
	rt := retriever.New(store, kw, embedder)

	srv := NewServer(rt, ing, st, store, kw, cfg, zap.NewNop())
	return srv, srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func ingestSample(t *testing.T, h http.Handler) *models.Document {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/v1/documents", ingestRequest{
		Title: "handbook.md",
		Content: "# Enrollment\n\nStudents register during the first week. Late registration needs a form.\n\n" +
			"# Grading\n\nGrades post at term end. Appeals go to the registrar.\n",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status: got %d, body %s", w.Code, w.Body.String())
	}
	var doc models.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" || doc.TotalChunks == 0 {
		t.Fatalf("ingest response incomplete: %+v", doc)
	}
	return &doc
}

func TestHandleIngestAndRetrieve(t *testing.T) {
	_, h := newTestServer(t)
	ingestSample(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/v1/retrieve", retrieveRequest{
		Query:    "registration forms",
		Strategy: models.StrategyKeyword,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("retrieve status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.RetrievalResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Strategy != models.StrategyKeyword || resp.Query != "registration forms" {
		t.Errorf("response echoes wrong request: %+v", resp)
	}
	if resp.TotalFound == 0 {
		t.Error("expected keyword hits for ingested content")
	}
}

func TestHandleRetrieve_Defaults(t *testing.T) {
	_, h := newTestServer(t)
	ingestSample(t, h)

	// No strategy in the request; the config default applies.
	w := doJSON(t, h, http.MethodPost, "/api/v1/retrieve", map[string]string{"query": "grades"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.RetrievalResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Strategy != models.StrategyHybrid {
		t.Errorf("strategy = %q, want default hybrid", resp.Strategy)
	}
}

func TestHandleRetrieve_BadRequest(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/retrieve", retrieveRequest{Query: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank query: got %d, want 400", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/api/v1/retrieve", retrieveRequest{Query: "x", Strategy: "psychic"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad strategy: got %d, want 400", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrieve", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: got %d, want 400", rec.Code)
	}
}

func TestHandleIngest_MissingInput(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/v1/documents", ingestRequest{Title: "empty.md"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", w.Code)
	}
}

func TestHandleGetDocument(t *testing.T) {
	_, h := newTestServer(t)
	doc := ingestSample(t, h)

	w := doJSON(t, h, http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var got models.Document
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != doc.ID || got.Title != "handbook.md" {
		t.Errorf("document mismatch: %+v", got)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/documents/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document: got %d, want 404", w.Code)
	}
}

func TestHandleListDocuments(t *testing.T) {
	_, h := newTestServer(t)
	ingestSample(t, h)

	w := doJSON(t, h, http.MethodGet, "/api/v1/documents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Documents []*models.Document `json:"documents"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Documents) != 1 {
		t.Errorf("got %d documents, want 1", len(out.Documents))
	}
}

func TestHandleDocumentStructure(t *testing.T) {
	_, h := newTestServer(t)
	doc := ingestSample(t, h)

	w := doJSON(t, h, http.MethodGet, "/api/v1/documents/"+doc.ID+"/structure", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		DocumentID string             `json:"document_id"`
		TOC        []*models.TOCEntry `json:"toc"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.TOC) == 0 {
		t.Fatal("expected TOC entries for headed document")
	}
	titles := make(map[string]bool)
	for _, e := range out.TOC {
		titles[e.Title] = true
	}
	if !titles["Enrollment"] || !titles["Grading"] {
		t.Errorf("TOC missing sections: %v", titles)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/documents/ghost/structure", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document: got %d, want 404", w.Code)
	}
}

func TestHandleDocumentChunksAndRelated(t *testing.T) {
	_, h := newTestServer(t)
	doc := ingestSample(t, h)

	w := doJSON(t, h, http.MethodGet, "/api/v1/documents/"+doc.ID+"/chunks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chunks status: got %d", w.Code)
	}
	var out struct {
		Chunks []*models.DocumentChunk `json:"chunks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Chunks) == 0 {
		t.Fatal("no chunks returned")
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/chunks/"+out.Chunks[0].ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get chunk status: got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/chunks/"+out.Chunks[0].ID+"/related", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("related status: got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/chunks/ghost/related", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing chunk: got %d, want 404", w.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	_, h := newTestServer(t)
	doc := ingestSample(t, h)

	w := doJSON(t, h, http.MethodDelete, "/api/v1/documents/"+doc.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("document survived delete: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodDelete, "/api/v1/documents/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleting missing document: got %d, want 404", w.Code)
	}
}

func TestHandleHealthAndStatus(t *testing.T) {
	_, h := newTestServer(t)
	ingestSample(t, h)

	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status: got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status endpoint: got %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["documents"].(float64) != 1 {
		t.Errorf("documents = %v, want 1", out["documents"])
	}
	if out["chunks"].(float64) == 0 || out["vector_store_size"].(float64) == 0 {
		t.Errorf("index sizes empty: %v", out)
	}
}

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestHandleWatchDirectories(t *testing.T) {
	srv, h := newTestServer(t)
	mock := &mockWatchService{dirs: []string{"/tmp/docs"}}
	srv.SetWatch(mock, "")

	w := doJSON(t, h, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/docs" {
		t.Errorf("directories: got %v", out.Directories)
	}

	newDir := t.TempDir()
	w = doJSON(t, h, http.MethodPost, "/api/v1/watch/directories", watchAddRequest{Path: newDir})
	if w.Code != http.StatusCreated {
		t.Fatalf("add status: got %d, body %s", w.Code, w.Body.String())
	}
	if len(mock.dirs) != 2 {
		t.Errorf("directory not added: %v", mock.dirs)
	}

	w = doJSON(t, h, http.MethodDelete, "/api/v1/watch/directories?path="+newDir, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove status: got %d", w.Code)
	}
	if len(mock.dirs) != 1 {
		t.Errorf("directory not removed: %v", mock.dirs)
	}
}

func TestHandleWatchDirectories_NotEnabled(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}
