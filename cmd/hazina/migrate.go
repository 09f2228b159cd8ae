package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hazina/internal/index"
)

var (
	migrateTarget string
	migrateForce  bool
	migrateNlist  int
	migrateNprobe int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the index between flat and clustered strategies",
	Long: `Migrate the index to a different search strategy.

The migration builds a candidate index from the stored vectors, verifies
its search quality against the current index, and rolls back automatically
if the result overlap falls below the quality floor.

Examples:
  # Promote a large flat index to clustered search
  hazina migrate --target clustered

  # Force promotion below the size threshold, with explicit parameters
  hazina migrate --target clustered --force --nlist 64 --nprobe 8

  # Demote back to exact search
  hazina migrate --target flat`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTarget, "target", "clustered", "target strategy: flat or clustered")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "allow migration to clustered below the size threshold")
	migrateCmd.Flags().IntVar(&migrateNlist, "nlist", 0, "override cluster count (0 = auto)")
	migrateCmd.Flags().IntVar(&migrateNprobe, "nprobe", 0, "override clusters probed per query (0 = configured default)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var target index.Strategy
	switch migrateTarget {
	case "flat":
		target = index.StrategyFlat
	case "clustered":
		target = index.StrategyClustered
	default:
		return fmt.Errorf("invalid target %q, expected flat or clustered", migrateTarget)
	}

	engine, err := loadEngine(cfg, logger)
	if err != nil {
		return err
	}

	record, err := engine.Migrate(cmd.Context(), index.MigrateOptions{
		Target: target,
		Force:  migrateForce,
		Nlist:  migrateNlist,
		Nprobe: migrateNprobe,
	})
	if err != nil {
		switch {
		case errors.Is(err, index.ErrBelowThreshold):
			return fmt.Errorf("index has %d vectors, below the clustered threshold of %d; use --force to migrate anyway",
				engine.Count(), cfg.Index.SizeThreshold)
		case errors.Is(err, index.ErrMigrationQuality):
			return fmt.Errorf("migration rolled back: %w", err)
		default:
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	fmt.Printf("Migrated %s -> %s\n", record.FromStrategy, record.ToStrategy)
	fmt.Printf("  Vectors:  %d\n", record.VectorCount)
	if record.ToStrategy == index.StrategyClustered {
		fmt.Printf("  Nlist:    %d\n", record.Nlist)
		fmt.Printf("  Nprobe:   %d\n", record.Nprobe)
	}
	fmt.Printf("  Overlap:  %.3f\n", record.Overlap)
	fmt.Printf("  Duration: %s\n", record.Duration)
	return nil
}
