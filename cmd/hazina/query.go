package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hazina/internal/index"
)

var (
	queryK       int
	queryFilters []string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the knowledge base",
	Long: `Embed a query and search the index, printing the top matches.

Examples:
  # Basic search
  hazina query "CBK lending rate caps"

  # More results, restricted to one source
  hazina query "mobile money tariffs" --k 10 --filter source_id=cbk

  # Multiple filters must all match
  hazina query "sacco dividends" --filter risk_level=low --filter life_stage=beginner`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryK, "k", 5, "number of results to return")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "metadata filter as field=value (repeatable)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	filter, err := parseFilters(queryFilters)
	if err != nil {
		return err
	}

	engine, err := loadEngine(cfg, logger)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	text := strings.Join(args, " ")
	vec, err := embedder.EmbedQuery(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	results, err := engine.Search(cmd.Context(), vec, queryK, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%2d. %s  (distance %.4f)\n", i+1, r.Meta.Title, r.Distance)
		if r.Meta.SectionTitle != "" {
			fmt.Printf("    section: %s\n", r.Meta.SectionTitle)
		}
		fmt.Printf("    source: %s  chunk: %s\n", r.Meta.SourceID, r.Meta.ChunkID)
		if r.Meta.URL != "" {
			fmt.Printf("    url: %s\n", r.Meta.URL)
		}
	}
	return nil
}

func parseFilters(pairs []string) (index.Filter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(index.Filter, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, expected field=value", pair)
		}
		filter[field] = value
	}
	return filter, nil
}
