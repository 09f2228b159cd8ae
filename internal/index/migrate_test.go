package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

// clusterBlobVectors builds clusters of points around well-separated
// centers, perCluster points each.
func clusterBlobVectors(clusters, perCluster, dim int) ([][]float32, []docmeta.ChunkMeta) {
	var vectors [][]float32
	var metas []docmeta.ChunkMeta
	for c := 0; c < clusters; c++ {
		for p := 0; p < perCluster; p++ {
			v := make([]float32, dim)
			v[0] = float32(c * 1000)
			v[1] = float32(p)
			vectors = append(vectors, v)
			metas = append(metas, docmeta.ChunkMeta{
				ChunkID: fmt.Sprintf("c%02d_%04d", c, p),
				DocID:   fmt.Sprintf("c%02d", c),
			})
		}
	}
	return vectors, metas
}

func TestMigrateRefusedBelowThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.SizeThreshold = 1000
	e := New("mig", cfg, zaptest.NewLogger(t))

	vectors, metas := gridVectors(50, 4)
	_, err := e.Build(context.Background(), vectors, metas)
	require.NoError(t, err)

	_, err = e.Migrate(context.Background(), MigrateOptions{})
	assert.ErrorIs(t, err, ErrBelowThreshold)
	assert.Equal(t, StrategyFlat, e.Strategy())
}

func TestMigrateFlatToClustered(t *testing.T) {
	cfg := testConfig(t)
	cfg.SizeThreshold = 10_000
	cfg.TrainPerCluster = 2
	e := New("mig", cfg, zaptest.NewLogger(t))

	vectors, metas := clusterBlobVectors(8, 12, 4)
	_, err := e.Build(context.Background(), vectors, metas)
	require.NoError(t, err)
	require.Equal(t, StrategyFlat, e.Strategy())

	// Probing every cell makes the clustered index exhaustive, so the
	// verification overlap is exact.
	record, err := e.Migrate(context.Background(), MigrateOptions{
		Force:  true,
		Nlist:  8,
		Nprobe: 8,
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, StrategyFlat, record.FromStrategy)
	assert.Equal(t, StrategyClustered, record.ToStrategy)
	assert.Equal(t, 96, record.VectorCount)
	assert.InDelta(t, 1.0, record.Overlap, 1e-9)
	assert.Equal(t, StrategyClustered, e.Strategy())

	// The migrated state is persisted and reloadable.
	loaded := New("mig", cfg, zaptest.NewLogger(t))
	require.NoError(t, loaded.Load())
	assert.Equal(t, StrategyClustered, loaded.Strategy())
	require.Len(t, loaded.Stats().Migrations, 1)
	assert.InDelta(t, record.Overlap, loaded.Stats().Migrations[0].Overlap, 1e-9)
}

func TestMigrateRollsBackOnQualityFloor(t *testing.T) {
	cfg := testConfig(t)
	cfg.SizeThreshold = 10_000
	cfg.TrainPerCluster = 2
	cfg.MigrationQualityFloor = 0.9
	e := New("mig", cfg, zaptest.NewLogger(t))

	// Eight clusters of six: with a single probe per query the clustered
	// index can return at most 6 of 10 results, so verification overlap
	// cannot reach the 0.9 floor.
	vectors, metas := clusterBlobVectors(8, 6, 4)
	_, err := e.Build(context.Background(), vectors, metas)
	require.NoError(t, err)
	require.NoError(t, e.Save())

	_, err = e.Migrate(context.Background(), MigrateOptions{
		Force:  true,
		Nlist:  8,
		Nprobe: 1,
		K:      10,
	})
	require.ErrorIs(t, err, ErrMigrationQuality)

	// The live index is untouched and the persisted state still loads as
	// the pre-migration flat index.
	assert.Equal(t, StrategyFlat, e.Strategy())
	loaded := New("mig", cfg, zaptest.NewLogger(t))
	require.NoError(t, loaded.Load())
	assert.Equal(t, StrategyFlat, loaded.Strategy())
	assert.Empty(t, loaded.Stats().Migrations)
}

func TestMigrateClusteredToFlat(t *testing.T) {
	cfg := testConfig(t)
	cfg.SizeThreshold = 50
	cfg.TrainPerCluster = 2
	cfg.Nprobe = 64
	e := New("demote", cfg, zaptest.NewLogger(t))

	vectors, metas := clusterBlobVectors(6, 12, 4)
	_, err := e.Build(context.Background(), vectors, metas)
	require.NoError(t, err)
	require.Equal(t, StrategyClustered, e.Strategy())

	record, err := e.Migrate(context.Background(), MigrateOptions{Target: StrategyFlat})
	require.NoError(t, err)
	assert.Equal(t, StrategyClustered, record.FromStrategy)
	assert.Equal(t, StrategyFlat, record.ToStrategy)
	assert.Equal(t, StrategyFlat, e.Strategy())
}

func TestMigrateSameStrategyRejected(t *testing.T) {
	e := New("same", testConfig(t), zaptest.NewLogger(t))
	vectors, metas := gridVectors(20, 4)
	_, err := e.Build(context.Background(), vectors, metas)
	require.NoError(t, err)

	_, err = e.Migrate(context.Background(), MigrateOptions{Target: StrategyFlat})
	assert.Error(t, err)
}

func TestMigrateEmptyIndex(t *testing.T) {
	e := New("empty", testConfig(t), zaptest.NewLogger(t))
	_, err := e.Migrate(context.Background(), MigrateOptions{Force: true})
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestMigrateUsesSuppliedQueries(t *testing.T) {
	cfg := testConfig(t)
	cfg.SizeThreshold = 10_000
	e := New("queries", cfg, zaptest.NewLogger(t))

	vectors, metas := clusterBlobVectors(4, 20, 4)
	_, err := e.Build(context.Background(), vectors, metas)
	require.NoError(t, err)

	queries := [][]float32{
		{0, 3, 0, 0},
		{1000, 7, 0, 0},
		{2000, 11, 0, 0},
	}
	record, err := e.Migrate(context.Background(), MigrateOptions{
		Force:   true,
		Nlist:   4,
		Nprobe:  4,
		Queries: queries,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, record.Overlap, 0.6)
}
