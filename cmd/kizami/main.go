// Package main is the Kizami CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kizami/internal/chunker"
	"github.com/hyperjump/kizami/internal/cli"
	"github.com/hyperjump/kizami/internal/config"
	"github.com/hyperjump/kizami/internal/embedding"
	"github.com/hyperjump/kizami/internal/extract"
	"github.com/hyperjump/kizami/internal/ingest"
	"github.com/hyperjump/kizami/internal/keyword"
	"github.com/hyperjump/kizami/internal/models"
	"github.com/hyperjump/kizami/internal/retriever"
	"github.com/hyperjump/kizami/internal/semantic"
	"github.com/hyperjump/kizami/internal/server"
	"github.com/hyperjump/kizami/internal/storage"
	"github.com/hyperjump/kizami/internal/structure"
	"github.com/hyperjump/kizami/internal/vector"
	"github.com/hyperjump/kizami/internal/watcher"
	"github.com/hyperjump/kizami/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kizami/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kizami server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "retrieve":
		runRetrieve()
	case "ingest":
		runIngest()
	case "structure":
		runStructure()
	case "delete":
		runDelete()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kizami version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (directory changes, file ingestion, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(
		components.Ingestor,
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Retriever,
		components.Ingestor,
		components.Storage,
		components.VectorStore,
		components.KeywordIndex,
		cfg,
		logger,
	)
	srv.SetWatch(watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorStorePath != "" && components.VectorStore != nil {
		if err := components.VectorStore.Save(cfg.Storage.VectorStorePath); err != nil {
			logger.Warn("vector store save failed", zap.String("path", cfg.Storage.VectorStorePath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printRetrieveUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kizami retrieve [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Strategies:
  semantic      pure vector similarity
  hierarchical  structure-aware (honors "section 2" / "level 3" hints in the query)
  hybrid        fused semantic + hierarchical scores (default)
  contextual    semantic hits with adjacent chunks attached
  keyword       exact and term matches only

Examples:
  kizami retrieve enrollment deadline
  kizami retrieve --strategy keyword "FERPA consent"
  kizami retrieve --strategy contextual --limit 5 grading appeals
  kizami retrieve --document doc-id --output json your query
`)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "kizami retrieve \"query\" -limit 5"
// would otherwise leave -limit unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

type retrieveRequest struct {
	Query    string                  `json:"query"`
	Strategy models.Strategy         `json:"strategy"`
	Options  models.RetrievalOptions `json:"options"`
}

func runRetrieve() {
	retrieveArgs := argsReorder(os.Args[2:])

	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	strategy := fs.String("strategy", "", "retrieval strategy: semantic, hierarchical, hybrid, contextual, keyword (default from config)")
	limit := fs.Int("limit", 0, "number of results (default from config)")
	threshold := fs.Float64("threshold", 0, "minimum similarity (default from config)")
	documentID := fs.String("document", "", "restrict retrieval to one document ID")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printRetrieveUsage(fs) }
	_ = fs.Parse(retrieveArgs)

	if fs.NArg() < 1 {
		printRetrieveUsage(fs)
		os.Exit(1)
	}
	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		printRetrieveUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	req := &retrieveRequest{
		Query:    queryStr,
		Strategy: models.Strategy(*strategy),
		Options: models.RetrievalOptions{
			Limit:               *limit,
			SimilarityThreshold: *threshold,
			DocumentID:          *documentID,
		},
	}

	if *serverURL != "" {
		// Use HTTP API when server is running (avoids Bleve/SQLite lock conflict).
		response, err := retrieveViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRetrievalResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct storage access (when server is not running).
	cfg, _, err := loadConfig(*configPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if req.Strategy == "" {
		req.Strategy = models.Strategy(cfg.Retrieval.DefaultStrategy)
	}
	response, err := components.Retriever.Retrieve(context.Background(), req.Query, req.Strategy, req.Options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRetrievalResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func retrieveViaHTTP(serverURL string, req *retrieveRequest) (*models.RetrievalResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/retrieve", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.RetrievalResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kizami ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := components.Ingestor.IngestDirectory(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		components.SaveVectorStore(cfg, logger)
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	// Single file: no extension filter
	doc, err := components.Ingestor.IngestFile(ctx, path, nil)
	if err != nil {
		fmt.Printf("Ingesting failed: %v\n", err)
		os.Exit(1)
	}
	components.SaveVectorStore(cfg, logger)
	fmt.Printf("Document ingested: %s (%d chunks, %d tokens)\n", doc.ID, doc.TotalChunks, doc.TotalTokens)
}

func runStructure() {
	fs := flag.NewFlagSet("structure", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kizami structure [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)
	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/documents/" + url.PathEscape(docID) + "/structure")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Structure failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			TOC []*models.TOCEntry `json:"toc"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteTOC(os.Stdout, out.TOC, format)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	toc, err := components.Retriever.BrowseTOC(context.Background(), docID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Structure failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteTOC(os.Stdout, toc, format)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents        int64                  `json:"documents"`
	Chunks           int64                  `json:"chunks"`
	VectorStoreSize  int                    `json:"vector_store_size"`
	KeywordIndexSize uint64                 `json:"keyword_index_size"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		keywordCount, _ := components.KeywordIndex.Count()
		status = statusResponse{
			Documents:        docCount,
			Chunks:           chunkCount,
			VectorStoreSize:  components.VectorStore.Size(),
			KeywordIndexSize: keywordCount,
			Config: map[string]interface{}{
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"target_chunk_size":    cfg.Chunking.TargetChunkSize,
				"default_strategy":     cfg.Retrieval.DefaultStrategy,
				"database_path":        cfg.Storage.DatabasePath,
				"bleve_index_path":     cfg.Storage.BleveIndexPath,
				"vector_store_path":    cfg.Storage.VectorStorePath,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:           %d   # count of ingested documents\n", status.Documents)
		fmt.Printf("chunks:              %d   # count of stored chunks\n", status.Chunks)
		fmt.Printf("vector_store_size:   %d   # count of embedded chunks\n", status.VectorStoreSize)
		fmt.Printf("keyword_index_size:  %d   # count of chunks in keyword index\n", status.KeywordIndexSize)
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, k := range []string{"embedding_dimensions", "target_chunk_size", "default_strategy",
				"database_path", "bleve_index_path", "vector_store_path"} {
				if v, ok := status.Config[k]; ok {
					fmt.Printf("%-21s%v\n", k+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: kizami watch <add|remove|list> [path]")
		fmt.Println("  kizami watch add <path>     Add directory to watch")
		fmt.Println("  kizami watch remove <path>  Remove directory from watch")
		fmt.Println("  kizami watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: kizami watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: kizami watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kizami delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Ingestor.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	components.SaveVectorStore(cfg, logger)
	fmt.Printf("Document deleted: %s\n", docID)
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorStore  vector.Store
	KeywordIndex keyword.Index
	Ingestor     *ingest.Ingestor
	Retriever    *retriever.Retriever
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorStore != nil {
		_ = c.VectorStore.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// SaveVectorStore persists the vector store to its configured path.
func (c *Components) SaveVectorStore(cfg *config.Config, logger *zap.Logger) {
	if cfg.Storage.VectorStorePath == "" || c.VectorStore == nil {
		return
	}
	if err := c.VectorStore.Save(cfg.Storage.VectorStorePath); err != nil && logger != nil {
		logger.Warn("vector store save failed", zap.String("path", cfg.Storage.VectorStorePath), zap.Error(err))
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// ONNX backend when the model is present; the batch client degrades to its
	// deterministic fallback per text either way.
	var backend embedding.Embedder
	if onnxEmbedder, onnxErr := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	); onnxErr == nil {
		backend = onnxEmbedder
	} else if logger != nil {
		logger.Warn("ONNX embedder unavailable, using deterministic fallback", zap.Error(onnxErr))
	}
	batchOpts := []embedding.BatchOption{embedding.WithBatchSize(cfg.Embedding.BatchSize)}
	if debug && logger != nil {
		batchOpts = append(batchOpts, embedding.WithBatchLogger(logger))
	}
	embedder := embedding.NewBatchClient(backend, cfg.Embedding.Dimensions, batchOpts...)

	vectorStore, err := vector.NewMemoryStore(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if cfg.Storage.VectorStorePath != "" {
		if loadErr := vectorStore.Load(cfg.Storage.VectorStorePath); loadErr != nil && logger != nil {
			logger.Warn("vector store load skipped (re-ingest to rebuild)",
				zap.String("path", cfg.Storage.VectorStorePath), zap.Error(loadErr))
		}
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	chunkerOpts := []chunker.Option{}
	ingestOpts := []ingest.Option{}
	retrieverOpts := []retriever.Option{}
	if debug && logger != nil {
		chunkerOpts = append(chunkerOpts, chunker.WithLogger(logger))
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
		retrieverOpts = append(retrieverOpts, retriever.WithLogger(logger))
	}
	detector := semantic.NewDetector(embedder)
	ck := chunker.New(structure.NewParser(), detector, chunkerOpts...)

	ing := ingest.New(store, embedder, vectorStore, keywordIndex, ck,
		extract.NewExtractor(), cfg.Chunking.ToModel(), ingestOpts...)
	rt := retriever.New(vectorStore, keywordIndex, embedder, retrieverOpts...)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorStore:  vectorStore,
		KeywordIndex: keywordIndex,
		Ingestor:     ing,
		Retriever:    rt,
	}, nil
}

func printUsage() {
	fmt.Println(`kizami - Hierarchical semantic chunking and retrieval engine

Usage:
  kizami server [flags]             Start the HTTP server
  kizami retrieve [flags] <query>   Retrieve chunks for a query
  kizami ingest [flags] <path>      Ingest a file or directory
  kizami structure [flags] <id>     Show a document's table of contents
  kizami delete [flags] <id>        Delete a document
  kizami status [flags]             Show storage/index status
  kizami watch <add|remove|list>    Manage watched directories
  kizami version                    Show version
  kizami help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kizami/config.yaml)
  --debug            Enable debug logging (directory changes, file ingestion, etc.)

Retrieve Flags:
  --config string     Config file path (for direct storage mode)
  --server string     Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --strategy string   Retrieval strategy: semantic, hierarchical, hybrid, contextual, keyword
  --limit int         Number of results
  --threshold float   Minimum similarity for semantic matches
  --document string   Restrict retrieval to one document ID
  --output string     Output format: text or json (default: text)

Ingest Flags:
  --config string    Config file path

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  kizami server
  kizami retrieve enrollment deadline
  kizami retrieve --strategy keyword "FERPA consent"
  kizami retrieve --output json "query"   # structured JSON for other apps
  kizami ingest handbook.md
  kizami ingest /path/to/docs
  kizami structure file:3f2a...
  kizami delete file:3f2a...
  kizami status
  kizami watch add /path/to/docs`)
}
