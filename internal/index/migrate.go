package index

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// defaultVerifyQueries is the battery size when the caller supplies no
// verification queries: that many stored vectors are sampled as stand-in
// queries, which exercises the exact regions the index covers.
const defaultVerifyQueries = 8

// defaultVerifyK is the top-k depth compared during verification.
const defaultVerifyK = 10

// MigrationRecord documents one completed strategy migration.
type MigrationRecord struct {
	MigratedAt   time.Time     `json:"migrated_at"`
	FromStrategy Strategy      `json:"from_strategy"`
	ToStrategy   Strategy      `json:"to_strategy"`
	VectorCount  int           `json:"vector_count"`
	Nlist        int           `json:"nlist,omitempty"`
	Nprobe       int           `json:"nprobe,omitempty"`
	Overlap      float64       `json:"search_quality_overlap"`
	Duration     time.Duration `json:"duration"`
}

// MigrateOptions control one migration run.
type MigrateOptions struct {
	// Target is the destination strategy. Defaults to clustered.
	Target Strategy

	// Force permits migration to clustered below the size threshold.
	Force bool

	// Nlist and Nprobe override the configured clustering parameters
	// when non-zero.
	Nlist  int
	Nprobe int

	// Queries are verification queries run against both the old and new
	// index. When empty, stored vectors are sampled instead.
	Queries [][]float32

	// K is the top-k depth for verification. Defaults to 10.
	K int
}

// Migrate rebuilds the index under a different strategy with verified
// rollback: the persisted state is snapshotted first, the new index is
// built and compared against the old one on a query battery, and if the
// top-k overlap ratio falls below the quality floor the snapshot is
// restored and the live index is left untouched. On success the new
// state is adopted, persisted, and recorded.
func (e *Engine) Migrate(ctx context.Context, opts MigrateOptions) (*MigrationRecord, error) {
	if opts.Target == "" {
		opts.Target = StrategyClustered
	}
	_, span := e.tracer.Start(ctx, "index.Migrate",
		trace.WithAttributes(
			attribute.String("from", string(e.strategy)),
			attribute.String("to", string(opts.Target))))
	defer span.End()

	if len(e.vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	if opts.Target == e.strategy {
		return nil, fmt.Errorf("index: already using strategy %s", e.strategy)
	}
	if opts.Target == StrategyClustered && len(e.vectors) < e.cfg.SizeThreshold && !opts.Force {
		return nil, fmt.Errorf("%w: %d < %d (use force to override)",
			ErrBelowThreshold, len(e.vectors), e.cfg.SizeThreshold)
	}

	start := time.Now()

	// Snapshot the persisted state before mutating anything.
	if _, err := os.Stat(e.Path()); os.IsNotExist(err) {
		if err := e.Save(); err != nil {
			return nil, fmt.Errorf("persisting index before migration: %w", err)
		}
	}
	if err := copyFile(e.Path(), e.snapshotPath()); err != nil {
		return nil, fmt.Errorf("snapshotting index: %w", err)
	}
	e.logger.Info("pre-migration snapshot written", zap.String("path", e.snapshotPath()))

	// Build the candidate index with the target strategy from the stored
	// vectors. The live engine is not touched until verification passes.
	candidateCfg := e.cfg
	if opts.Nlist > 0 {
		candidateCfg.MaxNlist = opts.Nlist
	}
	if opts.Nprobe > 0 {
		candidateCfg.Nprobe = opts.Nprobe
	}
	candidate := New(e.name, candidateCfg, e.logger)
	if _, err := candidate.build(opts.Target, e.vectors, e.meta); err != nil {
		return nil, fmt.Errorf("building %s index: %w", opts.Target, err)
	}

	// Verify: compare top-k between the old and new index over the
	// query battery.
	queries := e.verificationQueries(opts.Queries)
	k := opts.K
	if k <= 0 {
		k = defaultVerifyK
	}
	if k > len(e.vectors) {
		k = len(e.vectors)
	}
	overlap, err := overlapRatio(ctx, e, candidate, queries, k)
	if err != nil {
		return nil, fmt.Errorf("verifying migration: %w", err)
	}
	e.logger.Info("migration verification",
		zap.Float64("overlap", overlap),
		zap.Float64("floor", e.cfg.MigrationQualityFloor),
		zap.Int("queries", len(queries)))

	if overlap < e.cfg.MigrationQualityFloor {
		// Restore the snapshot so the persisted state matches the still-live
		// old index, then report failure.
		if err := copyFile(e.snapshotPath(), e.Path()); err != nil {
			return nil, fmt.Errorf("restoring snapshot after failed migration: %w", err)
		}
		e.logger.Warn("migration rolled back",
			zap.Float64("overlap", overlap),
			zap.Float64("floor", e.cfg.MigrationQualityFloor))
		return nil, fmt.Errorf("%w: overlap %.3f below floor %.3f, snapshot restored",
			ErrMigrationQuality, overlap, e.cfg.MigrationQualityFloor)
	}

	record := MigrationRecord{
		MigratedAt:   time.Now().UTC(),
		FromStrategy: e.strategy,
		ToStrategy:   opts.Target,
		VectorCount:  len(e.vectors),
		Nlist:        candidate.nlist,
		Nprobe:       candidate.nprobe,
		Overlap:      overlap,
		Duration:     time.Since(start),
	}

	// Adopt the candidate state and persist.
	e.strategy = candidate.strategy
	e.nlist = candidate.nlist
	e.nprobe = candidate.nprobe
	e.centroids = candidate.centroids
	e.lists = candidate.lists
	e.trainedCount = candidate.trainedCount
	e.insertedSinceTrain = 0
	e.migrations = append(e.migrations, record)

	if err := e.Save(); err != nil {
		return nil, fmt.Errorf("persisting migrated index: %w", err)
	}

	e.logger.Info("migration complete",
		zap.String("from", string(record.FromStrategy)),
		zap.String("to", string(record.ToStrategy)),
		zap.Int("vectors", record.VectorCount),
		zap.Int("nlist", record.Nlist),
		zap.Float64("overlap", record.Overlap),
		zap.Duration("duration", record.Duration))
	return &record, nil
}

// verificationQueries pads caller-supplied queries with a deterministic
// sample of stored vectors up to the battery size.
func (e *Engine) verificationQueries(supplied [][]float32) [][]float32 {
	queries := append([][]float32(nil), supplied...)
	want := defaultVerifyQueries
	if want > len(e.vectors) {
		want = len(e.vectors)
	}
	if len(queries) >= want {
		return queries
	}
	rng := rand.New(rand.NewSource(e.cfg.Seed))
	for _, p := range rng.Perm(len(e.vectors)) {
		if len(queries) >= want {
			break
		}
		queries = append(queries, e.vectors[p])
	}
	return queries
}

// overlapRatio runs each query against both engines and returns the
// fraction of top-k chunk ids the result sets share.
func overlapRatio(ctx context.Context, old, migrated *Engine, queries [][]float32, k int) (float64, error) {
	if len(queries) == 0 {
		return 0, ErrEmptyIndex
	}
	var matched, possible int
	for _, q := range queries {
		oldResults, err := old.Search(ctx, q, k, nil)
		if err != nil {
			return 0, err
		}
		newResults, err := migrated.Search(ctx, q, k, nil)
		if err != nil {
			return 0, err
		}
		oldIDs := make(map[string]struct{}, len(oldResults))
		for _, r := range oldResults {
			oldIDs[r.Meta.ChunkID] = struct{}{}
		}
		for _, r := range newResults {
			if _, ok := oldIDs[r.Meta.ChunkID]; ok {
				matched++
			}
		}
		possible += k
	}
	return float64(matched) / float64(possible), nil
}
