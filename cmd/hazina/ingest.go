package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hazina/internal/chunker"
	"github.com/fyrsmithlabs/hazina/internal/dedup"
	"github.com/fyrsmithlabs/hazina/internal/index"
	"github.com/fyrsmithlabs/hazina/internal/pipeline"
	"github.com/fyrsmithlabs/hazina/internal/tagger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <descriptors>",
	Short: "Ingest scraped documents into the knowledge base",
	Long: `Ingest scraped documents into the knowledge base.

The argument is either a JSON file containing an array of document
descriptors, or a directory whose *.json files each contain one
descriptor. Relative raw-file paths resolve against the descriptor's
directory.

Examples:
  # Ingest a scrape batch
  hazina ingest data/scraped/batch_2024_06.json

  # Ingest a directory of per-document descriptors
  hazina ingest data/scraped/cbk/`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	docs, err := loadDescriptors(args[0])
	if err != nil {
		return err
	}

	dd, err := dedup.New(dedup.Config{
		Dir:                 cfg.Dedup.Dir,
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		ShingleSize:         cfg.Dedup.ShingleSize,
		SketchWidth:         cfg.Dedup.SketchWidth,
		Seed:                cfg.Dedup.Seed,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing deduplicator: %w", err)
	}

	ck, err := chunker.New(chunker.Config{
		ChunkSize:           cfg.Chunker.ChunkSize,
		ChunkOverlap:        cfg.Chunker.ChunkOverlap,
		MinChunkSize:        cfg.Chunker.MinChunkSize,
		ArticleChunkSize:    cfg.Chunker.ArticleChunkSize,
		ArticleChunkOverlap: cfg.Chunker.ArticleChunkOverlap,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing chunker: %w", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	engine := newEngine(cfg, logger)
	if err := engine.Load(); err != nil {
		if !errors.Is(err, index.ErrIndexNotFound) {
			return fmt.Errorf("loading index %q: %w", cfg.Index.Name, err)
		}
		// Missing index is fine on first ingest; the orchestrator builds it.
		logger.Info("no existing index, a new one will be built",
			zap.String("index", cfg.Index.Name))
	}

	orch, err := pipeline.New(pipeline.Config{
		DataDir:        cfg.Pipeline.DataDir,
		MinTextLength:  cfg.Pipeline.MinTextLength,
		MaxRunHistory:  cfg.Pipeline.MaxRunHistory,
		EmbedBatchSize: cfg.Embedding.BatchSize,
	}, pipeline.Deps{
		Dedup:    dd,
		Chunker:  ck,
		Tagger:   tagger.New(logger),
		Embedder: embedder,
		Engine:   engine,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}

	summary, err := orch.Run(cmd.Context(), docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Run %s complete\n", summary.RunID)
	fmt.Printf("  Input:      %d\n", summary.Input)
	fmt.Printf("  Parsed:     %d\n", summary.Parsed)
	fmt.Printf("  Duplicates: %d\n", summary.Duplicates)
	fmt.Printf("  Errors:     %d\n", summary.Errors)
	fmt.Printf("  Chunks:     %d\n", summary.Chunks)
	fmt.Printf("  Indexed:    %d\n", summary.Indexed)
	fmt.Printf("  Duration:   %.2fs\n", summary.DurationSeconds)
	return nil
}

// loadDescriptors reads document descriptors from a JSON file (array) or
// a directory of single-descriptor *.json files.
func loadDescriptors(path string) ([]pipeline.ScrapedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptors: %w", err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading descriptors: %w", err)
		}
		var docs []pipeline.ScrapedDocument
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parsing descriptors %s: %w", path, err)
		}
		resolveRawFiles(docs, filepath.Dir(path))
		return docs, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor dir: %w", err)
	}

	var docs []pipeline.ScrapedDocument
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading descriptor %s: %w", entry.Name(), err)
		}
		var doc pipeline.ScrapedDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing descriptor %s: %w", entry.Name(), err)
		}
		docs = append(docs, doc)
	}
	resolveRawFiles(docs, path)
	return docs, nil
}

func resolveRawFiles(docs []pipeline.ScrapedDocument, base string) {
	for i := range docs {
		if docs[i].RawFile != "" && !filepath.IsAbs(docs[i].RawFile) {
			docs[i].RawFile = filepath.Join(base, docs[i].RawFile)
		}
	}
}
