// Package embeddings provides text embedding generation.
//
// The index engine consumes embeddings through the Embedder interface; the
// concrete provider (local ONNX models via FastEmbed, or the deterministic
// dev provider) is chosen by configuration. Dimensionality is fixed per
// provider and must match the active index.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("embeddings: empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("embeddings: invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embeddings: generation failed")
)

// Embedder generates vector embeddings from text.
//
// Implementations must be deterministic for a fixed model identifier:
// embedding the same text twice yields the same vector.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query. Some models
	// prefix queries differently from documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimensionality.
	Dimension() int

	// Close releases provider resources.
	Close() error
}

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is "fastembed" or "hash" (deterministic, for development
	// and tests only).
	Provider string

	// Model is the embedding model name.
	Model string

	// CacheDir caches downloaded model files (fastembed only).
	CacheDir string
}

// NewEmbedder constructs the configured provider.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "fastembed":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "hash":
		return NewHashEmbedder(384), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
