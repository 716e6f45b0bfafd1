package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/config"
	"github.com/hyperjump/kizami/internal/models"
)

type retrieveRequest struct {
	Query    string                  `json:"query"`
	Strategy models.Strategy         `json:"strategy"`
	Options  models.RetrievalOptions `json:"options"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Strategy == "" {
		req.Strategy = models.Strategy(s.config.Retrieval.DefaultStrategy)
	}
	if req.Options.Limit == 0 {
		req.Options.Limit = s.config.Retrieval.DefaultLimit
	}
	if req.Options.Limit > s.config.Retrieval.MaxLimit {
		req.Options.Limit = s.config.Retrieval.MaxLimit
	}
	if req.Options.SimilarityThreshold == 0 {
		req.Options.SimilarityThreshold = s.config.Retrieval.SimilarityThreshold
	}
	if req.Options.ContextWindow == 0 {
		req.Options.ContextWindow = s.config.Retrieval.ContextWindow
	}
	s.logger.Debug("retrieve request",
		zap.String("query", req.Query),
		zap.String("strategy", string(req.Strategy)),
		zap.Int("limit", req.Options.Limit))
	response, err := s.retriever.Retrieve(r.Context(), req.Query, req.Strategy, req.Options)
	if err != nil {
		// Only malformed input reaches here; backend trouble degrades inside Retrieve.
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type ingestRequest struct {
	Path    string `json:"path,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest document request", zap.String("path", req.Path), zap.String("title", req.Title))

	var (
		doc *models.Document
		err error
	)
	switch {
	case req.Path != "":
		doc, err = s.ingestor.IngestFile(r.Context(), req.Path, s.config.Watch.Extensions)
	case req.Content != "":
		name := req.Title
		if name == "" {
			name = "untitled.txt"
		}
		doc, err = s.ingestor.IngestBytes(r.Context(), name, []byte(req.Content))
	default:
		s.respondError(w, http.StatusBadRequest, "path or content is required")
		return
	}
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentStructure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	toc, err := s.retriever.BrowseTOC(r.Context(), id)
	if err != nil {
		s.logger.Error("structure failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if toc == nil {
		toc = []*models.TOCEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"document_id": id, "toc": toc})
}

func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	chunks, err := s.storage.GetChunksByDocumentID(r.Context(), id)
	if err != nil {
		s.logger.Error("document chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if chunks == nil {
		chunks = []*models.DocumentChunk{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"document_id": id, "chunks": chunks})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err := s.ingestor.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chunk, err := s.storage.GetChunk(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "chunk not found")
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleRelatedChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	related, err := s.retriever.RelatedChunks(r.Context(), id, limit)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "chunk not found")
		return
	}
	if related == nil {
		related = []*models.RetrievedChunk{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"chunk_id": id, "related": related})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keywordCount, _ := s.keywordIndex.Count()
	resp := map[string]interface{}{
		"documents":          docCount,
		"chunks":             chunkCount,
		"vector_store_size":  s.store.Size(),
		"keyword_index_size": keywordCount,
		"config": map[string]interface{}{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"min_chunk_size":       s.config.Chunking.MinChunkSize,
			"max_chunk_size":       s.config.Chunking.MaxChunkSize,
			"target_chunk_size":    s.config.Chunking.TargetChunkSize,
			"default_strategy":     s.config.Retrieval.DefaultStrategy,
			"database_path":        s.config.Storage.DatabasePath,
			"bleve_index_path":     s.config.Storage.BleveIndexPath,
			"vector_store_path":    s.config.Storage.VectorStorePath,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	s.config.Watch.Directories = s.watch.Directories()
	err := config.Save(s.configPath, s.config)
	s.configMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
