// Package index implements the vector index engine: exact flat search for
// small corpora, inverted-file clustered search at scale, metadata-filtered
// queries, atomic persistence, and verified migration between strategies.
//
// One engine owns one named index. The engine follows a single-writer
// model: Build, Insert, and Migrate must be serialized externally and must
// not run concurrently with Search against the same engine. Concurrent
// searches against a built index are safe.
package index

import (
	"errors"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

// Strategy identifies the index layout.
type Strategy string

const (
	// StrategyFlat stores raw vectors and searches by linear scan. Exact
	// results; fine below the size threshold.
	StrategyFlat Strategy = "flat"

	// StrategyClustered partitions vectors into Voronoi cells around
	// trained centroids and probes only the nearest cells per query.
	// Approximate results; sub-linear search time.
	StrategyClustered Strategy = "clustered"
)

var (
	// ErrDimensionMismatch indicates a vector whose dimensionality does not
	// match the index. The offending batch is rejected; the index is unchanged.
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")

	// ErrEmptyIndex indicates a search or migration against an index with
	// no vectors.
	ErrEmptyIndex = errors.New("index: index is empty")

	// ErrIndexNotFound indicates no persisted state exists at the index
	// path. Distinguished from corruption: not-found is recoverable by
	// rebuilding from the manifest.
	ErrIndexNotFound = errors.New("index: persisted index not found")

	// ErrIndexCorrupt indicates persisted state exists but cannot be decoded.
	ErrIndexCorrupt = errors.New("index: persisted index corrupt")

	// ErrBelowThreshold indicates a migration request for an index smaller
	// than the size threshold, without the force flag.
	ErrBelowThreshold = errors.New("index: vector count below migration threshold")

	// ErrMigrationQuality indicates a migration whose verified search
	// quality fell below the configured floor. The previous index was
	// restored; the live index is never degraded.
	ErrMigrationQuality = errors.New("index: migration search quality below floor")

	// ErrLengthMismatch indicates vectors and metadata of different lengths.
	ErrLengthMismatch = errors.New("index: vectors and metadata length mismatch")
)

// Config holds the engine's operational parameters.
type Config struct {
	// Dir is the directory where named indexes persist.
	Dir string

	// SizeThreshold is the vector count at which Build selects the
	// clustered strategy instead of flat.
	SizeThreshold int

	// MaxNlist bounds the trained cluster count from above.
	MaxNlist int

	// Nprobe is the number of clusters visited per clustered query.
	Nprobe int

	// TrainPerCluster is the minimum training vectors per cluster; it also
	// bounds nlist from above at count/TrainPerCluster.
	TrainPerCluster int

	// OverfetchMultiplier widens the candidate set for filtered search.
	OverfetchMultiplier int

	// MigrationQualityFloor is the minimum top-k overlap ratio a migrated
	// index must achieve against the pre-migration index.
	MigrationQualityFloor float64

	// Seed fixes the random source used for training sampling and
	// centroid seeding, making builds reproducible.
	Seed int64
}

// ApplyDefaults fills zero values with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = "data/index"
	}
	if c.SizeThreshold == 0 {
		c.SizeThreshold = 100_000
	}
	if c.MaxNlist == 0 {
		c.MaxNlist = 4096
	}
	if c.Nprobe == 0 {
		c.Nprobe = 16
	}
	if c.TrainPerCluster == 0 {
		c.TrainPerCluster = 40
	}
	if c.OverfetchMultiplier == 0 {
		c.OverfetchMultiplier = 4
	}
	if c.MigrationQualityFloor == 0 {
		c.MigrationQualityFloor = 0.6
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
}

// Result is one search hit: the stored chunk metadata and its squared
// Euclidean distance from the query.
type Result struct {
	Meta     docmeta.ChunkMeta
	Distance float32
}

// Filter is an exact-match predicate over chunk metadata fields. For
// multi-value fields (persona, product_types) the predicate is membership.
// An empty or nil filter matches everything; unknown field names match
// nothing.
type Filter map[string]string

// Matches reports whether the chunk satisfies every field predicate.
func (f Filter) Matches(meta *docmeta.ChunkMeta) bool {
	for field, want := range f {
		single, multi, ok := meta.Field(field)
		if !ok {
			return false
		}
		if multi != nil {
			found := false
			for _, v := range multi {
				if v == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if single != want {
			return false
		}
	}
	return true
}

// BuildDecision reports the strategy the engine chose for a build, so
// callers can observe and assert the selection instead of inferring it
// from side effects.
type BuildDecision struct {
	Strategy    Strategy
	VectorCount int
	Dimension   int

	// Nlist, Nprobe, and TrainSize are set only for clustered builds.
	Nlist     int
	Nprobe    int
	TrainSize int
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
