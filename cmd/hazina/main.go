// Package main implements the hazina CLI for building and querying the
// financial knowledge base: ingest scraped documents, search the index,
// inspect stats, migrate index strategies, and serve the query API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hazina/internal/config"
	"github.com/fyrsmithlabs/hazina/internal/embeddings"
	"github.com/fyrsmithlabs/hazina/internal/index"
	"github.com/fyrsmithlabs/hazina/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hazina",
	Short: "Kenyan financial knowledge base pipeline and query engine",
	Long: `hazina ingests scraped financial documents (CBK circulars, bank tariff
guides, market reports) into a deduplicated, chunked, embedded vector index,
and serves semantic search over the result.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hazina\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

// bootstrap loads configuration and builds the logger shared by every
// subcommand.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	return cfg, logger, nil
}

// newEmbedder builds the configured embedding provider wrapped with
// instrument recording.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embeddings.Embedder, error) {
	inner, err := embeddings.NewEmbedder(embeddings.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		CacheDir: cfg.Embedding.CacheDir,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}
	return embeddings.NewMeteredEmbedder(inner, cfg.Embedding.Model, embeddings.NewMetrics(logger)), nil
}

// newEngine constructs the configured index engine without loading state.
func newEngine(cfg *config.Config, logger *zap.Logger) *index.Engine {
	return index.New(cfg.Index.Name, index.Config{
		Dir:                   cfg.Index.Dir,
		SizeThreshold:         cfg.Index.SizeThreshold,
		MaxNlist:              cfg.Index.MaxNlist,
		Nprobe:                cfg.Index.Nprobe,
		TrainPerCluster:       cfg.Index.TrainPerCluster,
		OverfetchMultiplier:   cfg.Index.OverfetchMultiplier,
		MigrationQualityFloor: cfg.Index.MigrationQualityFloor,
	}, logger)
}

// loadEngine constructs the engine and loads its persisted state.
func loadEngine(cfg *config.Config, logger *zap.Logger) (*index.Engine, error) {
	engine := newEngine(cfg, logger)
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("loading index %q: %w", cfg.Index.Name, err)
	}
	return engine, nil
}
