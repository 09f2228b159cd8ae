// Package config provides configuration loading for hazina.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/hazina/internal/logging"
)

// Config is the root configuration for all hazina components.
type Config struct {
	Chunker   ChunkerConfig   `koanf:"chunker"`
	Dedup     DedupConfig     `koanf:"dedup"`
	Index     IndexConfig     `koanf:"index"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Server    ServerConfig    `koanf:"server"`
	Logging   logging.Config  `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ChunkerConfig holds structural chunker parameters.
type ChunkerConfig struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int `koanf:"chunk_size"`

	// ChunkOverlap is the character overlap between consecutive chunks.
	ChunkOverlap int `koanf:"chunk_overlap"`

	// MinChunkSize drops chunks shorter than this after splitting.
	MinChunkSize int `koanf:"min_chunk_size"`

	// ArticleChunkSize and ArticleChunkOverlap apply in article mode, where
	// 1-2 large chunks should capture a whole piece.
	ArticleChunkSize    int `koanf:"article_chunk_size"`
	ArticleChunkOverlap int `koanf:"article_chunk_overlap"`
}

// DedupConfig holds deduplication parameters.
type DedupConfig struct {
	// Dir is the directory holding the persistent dedup registry.
	Dir string `koanf:"dir"`

	// SimilarityThreshold is the estimated Jaccard similarity at or above
	// which a document counts as a near-duplicate.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// ShingleSize is the character n-gram length.
	ShingleSize int `koanf:"shingle_size"`

	// SketchWidth is the number of MinHash slots per sketch.
	SketchWidth int `koanf:"sketch_width"`

	// Seed fixes the hash-function family for deterministic sketches.
	Seed int64 `koanf:"seed"`
}

// IndexConfig holds vector index engine parameters.
type IndexConfig struct {
	// Dir is the directory where named indexes persist.
	Dir string `koanf:"dir"`

	// Name is the default index name.
	Name string `koanf:"name"`

	// SizeThreshold is the vector count at which strategy selection
	// switches from flat to clustered.
	SizeThreshold int `koanf:"size_threshold"`

	// MaxNlist bounds the cluster count from above.
	MaxNlist int `koanf:"max_nlist"`

	// Nprobe is the number of clusters visited per query.
	Nprobe int `koanf:"nprobe"`

	// TrainPerCluster is the minimum training vectors per cluster.
	TrainPerCluster int `koanf:"train_per_cluster"`

	// OverfetchMultiplier widens the candidate set for filtered search.
	OverfetchMultiplier int `koanf:"overfetch_multiplier"`

	// MigrationQualityFloor is the minimum top-k overlap ratio a migrated
	// index must achieve against the pre-migration snapshot.
	MigrationQualityFloor float64 `koanf:"migration_quality_floor"`
}

// EmbeddingConfig holds embedding provider parameters.
type EmbeddingConfig struct {
	// Provider selects the embedder: "fastembed".
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// CacheDir caches downloaded model files.
	CacheDir string `koanf:"cache_dir"`

	// BatchSize bounds how many chunks are embedded per call.
	BatchSize int `koanf:"batch_size"`
}

// PipelineConfig holds ingestion orchestrator parameters.
type PipelineConfig struct {
	// DataDir is the root for processed text and the manifest.
	DataDir string `koanf:"data_dir"`

	// MinTextLength rejects documents shorter than this after cleaning.
	MinTextLength int `koanf:"min_text_length"`

	// MaxRunHistory caps the manifest's run-summary list.
	MaxRunHistory int `koanf:"max_run_history"`
}

// ServerConfig holds the HTTP query API parameters.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// RateLimit is the sustained queries-per-second allowed per server.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the burst size for the rate limiter.
	RateBurst int `koanf:"rate_burst"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`

	// ServiceName identifies this process in traces and metrics.
	ServiceName string `koanf:"service_name"`
}

// applyDefaults fills zero values with production defaults.
func applyDefaults(cfg *Config) {
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1200
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 200
	}
	if cfg.Chunker.MinChunkSize == 0 {
		cfg.Chunker.MinChunkSize = 100
	}
	if cfg.Chunker.ArticleChunkSize == 0 {
		cfg.Chunker.ArticleChunkSize = 2400
	}
	if cfg.Chunker.ArticleChunkOverlap == 0 {
		cfg.Chunker.ArticleChunkOverlap = 300
	}

	if cfg.Dedup.Dir == "" {
		cfg.Dedup.Dir = "data/cache/dedup"
	}
	if cfg.Dedup.SimilarityThreshold == 0 {
		cfg.Dedup.SimilarityThreshold = 0.85
	}
	if cfg.Dedup.ShingleSize == 0 {
		cfg.Dedup.ShingleSize = 5
	}
	if cfg.Dedup.SketchWidth == 0 {
		cfg.Dedup.SketchWidth = 128
	}
	if cfg.Dedup.Seed == 0 {
		cfg.Dedup.Seed = 42
	}

	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "data/index"
	}
	if cfg.Index.Name == "" {
		cfg.Index.Name = "finance_kb"
	}
	if cfg.Index.SizeThreshold == 0 {
		cfg.Index.SizeThreshold = 100_000
	}
	if cfg.Index.MaxNlist == 0 {
		cfg.Index.MaxNlist = 4096
	}
	if cfg.Index.Nprobe == 0 {
		cfg.Index.Nprobe = 16
	}
	if cfg.Index.TrainPerCluster == 0 {
		cfg.Index.TrainPerCluster = 40
	}
	if cfg.Index.OverfetchMultiplier == 0 {
		cfg.Index.OverfetchMultiplier = 4
	}
	if cfg.Index.MigrationQualityFloor == 0 {
		cfg.Index.MigrationQualityFloor = 0.6
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "fastembed"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "BAAI/bge-base-en-v1.5"
	}
	if cfg.Embedding.CacheDir == "" {
		cfg.Embedding.CacheDir = "data/cache/models"
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}

	if cfg.Pipeline.DataDir == "" {
		cfg.Pipeline.DataDir = "data"
	}
	if cfg.Pipeline.MinTextLength == 0 {
		cfg.Pipeline.MinTextLength = 100
	}
	if cfg.Pipeline.MaxRunHistory == 0 {
		cfg.Pipeline.MaxRunHistory = 50
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8790
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 20
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 40
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "hazina"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunker: overlap (%d) must be smaller than chunk size (%d)",
			c.Chunker.ChunkOverlap, c.Chunker.ChunkSize)
	}
	if c.Chunker.MinChunkSize <= 0 {
		return fmt.Errorf("chunker: min_chunk_size must be positive")
	}
	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("dedup: similarity_threshold must be in (0, 1], got %v",
			c.Dedup.SimilarityThreshold)
	}
	if c.Dedup.SketchWidth <= 0 {
		return fmt.Errorf("dedup: sketch_width must be positive")
	}
	if c.Index.SizeThreshold <= 0 {
		return fmt.Errorf("index: size_threshold must be positive")
	}
	if c.Index.Nprobe <= 0 {
		return fmt.Errorf("index: nprobe must be positive")
	}
	if c.Index.OverfetchMultiplier < 1 {
		return fmt.Errorf("index: overfetch_multiplier must be >= 1")
	}
	if c.Index.MigrationQualityFloor <= 0 || c.Index.MigrationQualityFloor > 1 {
		return fmt.Errorf("index: migration_quality_floor must be in (0, 1], got %v",
			c.Index.MigrationQualityFloor)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port must be in [1, 65535], got %d", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
