// Package config provides configuration loading and structs for the Kizami server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kizami/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorStorePath string `yaml:"vector_store_path"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// ChunkingConfig holds chunking settings. Boolean fields are pointers so an
// explicit false in the file is distinguishable from an unset value.
type ChunkingConfig struct {
	MinChunkSize      int     `yaml:"min_chunk_size"`
	MaxChunkSize      int     `yaml:"max_chunk_size"`
	TargetChunkSize   int     `yaml:"target_chunk_size"`
	OverlapPercentage float64 `yaml:"overlap_percentage"`

	RespectSemanticBoundaries *bool `yaml:"respect_semantic_boundaries"`
	RespectSectionBoundaries  *bool `yaml:"respect_section_boundaries"`
	IncludeHeadingContext     *bool `yaml:"include_heading_context"`
}

// ToModel converts the config section into the chunker's run configuration.
func (c *ChunkingConfig) ToModel() models.ChunkingConfig {
	return models.ChunkingConfig{
		MinChunkSize:              c.MinChunkSize,
		MaxChunkSize:              c.MaxChunkSize,
		TargetChunkSize:           c.TargetChunkSize,
		OverlapPercentage:         c.OverlapPercentage,
		RespectSemanticBoundaries: boolOrDefault(c.RespectSemanticBoundaries, true),
		RespectSectionBoundaries:  boolOrDefault(c.RespectSectionBoundaries, true),
		IncludeHeadingContext:     boolOrDefault(c.IncludeHeadingContext, true),
	}
}

func boolOrDefault(p *bool, def bool) bool {
	if p != nil {
		return *p
	}
	return def
}

// RetrievalConfig holds retrieval defaults.
type RetrievalConfig struct {
	DefaultStrategy     string  `yaml:"default_strategy"`
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ContextWindow       int     `yaml:"context_window"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorStorePath = expandPath(cfg.Storage.VectorStorePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
