package index

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

const instrumentationName = "github.com/fyrsmithlabs/hazina/internal/index"

// rebuildAdvisoryRatio is the operational staleness policy for clustered
// indexes: once incremental inserts since the last training exceed this
// fraction of the trained corpus, centroid drift can start to cost recall
// and a full rebuild is recommended. The engine only reports the
// condition via Stats; it never retrains on its own.
const rebuildAdvisoryRatio = 0.25

// Engine is one named vector index. See the package comment for the
// concurrency contract: mutating operations (Build, Insert, Migrate,
// Save, Load) require external serialization against each other and
// against Search.
type Engine struct {
	name   string
	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer

	strategy Strategy
	dim      int
	vectors  [][]float32
	meta     []docmeta.ChunkMeta

	nlist     int
	nprobe    int
	centroids [][]float32
	lists     [][]int

	trainedCount       int
	insertedSinceTrain int
	migrations         []MigrationRecord
}

// New creates an engine for the named index. No state is loaded; call
// Load to restore persisted state or Build to start fresh.
func New(name string, cfg Config, logger *zap.Logger) *Engine {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		name:     name,
		cfg:      cfg,
		logger:   logger.With(zap.String("index", name)),
		tracer:   otel.Tracer(instrumentationName),
		strategy: StrategyFlat,
	}
}

// Name returns the index name.
func (e *Engine) Name() string { return e.name }

// Count returns the number of stored vectors.
func (e *Engine) Count() int { return len(e.vectors) }

// Dimension returns the vector dimensionality, or 0 if empty.
func (e *Engine) Dimension() int { return e.dim }

// Strategy returns the active index strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Build replaces the index contents with the given vectors and metadata,
// selecting the strategy from the vector count: flat below the size
// threshold, clustered at or above it. The decision is returned so the
// caller can observe which strategy was chosen.
func (e *Engine) Build(ctx context.Context, vectors [][]float32, metas []docmeta.ChunkMeta) (BuildDecision, error) {
	_, span := e.tracer.Start(ctx, "index.Build",
		trace.WithAttributes(attribute.Int("vectors", len(vectors))))
	defer span.End()

	if len(vectors) == 0 {
		return BuildDecision{}, ErrEmptyIndex
	}
	if len(vectors) != len(metas) {
		return BuildDecision{}, ErrLengthMismatch
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return BuildDecision{}, fmt.Errorf("%w: vector %d has dim %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	strategy := StrategyFlat
	if len(vectors) >= e.cfg.SizeThreshold {
		strategy = StrategyClustered
	}
	return e.build(strategy, vectors, metas)
}

func (e *Engine) build(strategy Strategy, vectors [][]float32, metas []docmeta.ChunkMeta) (BuildDecision, error) {
	start := time.Now()

	e.strategy = strategy
	e.dim = len(vectors[0])
	e.vectors = vectors
	e.meta = metas
	e.centroids = nil
	e.lists = nil
	e.nlist = 0
	e.nprobe = 0
	e.trainedCount = len(vectors)
	e.insertedSinceTrain = 0

	decision := BuildDecision{
		Strategy:    strategy,
		VectorCount: len(vectors),
		Dimension:   e.dim,
	}

	if strategy == StrategyClustered {
		e.trainClustered(vectors)
		decision.Nlist = e.nlist
		decision.Nprobe = e.nprobe
		decision.TrainSize = e.lastTrainSize(len(vectors))
	}

	e.logger.Info("index built",
		zap.String("strategy", string(strategy)),
		zap.Int("vectors", len(vectors)),
		zap.Int("dim", e.dim),
		zap.Int("nlist", e.nlist),
		zap.Duration("duration", time.Since(start)))
	return decision, nil
}

// chooseNlist derives the cluster count from the corpus size: twice the
// square root of n, bounded by configuration above and by one cluster per
// TrainPerCluster vectors below, never less than one.
func (e *Engine) chooseNlist(n int) int {
	nlist := int(2 * math.Sqrt(float64(n)))
	if nlist > e.cfg.MaxNlist {
		nlist = e.cfg.MaxNlist
	}
	if limit := n / e.cfg.TrainPerCluster; nlist > limit {
		nlist = limit
	}
	if nlist < 1 {
		nlist = 1
	}
	return nlist
}

func (e *Engine) lastTrainSize(n int) int {
	size := e.nlist * e.cfg.TrainPerCluster
	if size > n {
		size = n
	}
	return size
}

// trainClustered trains the coarse quantizer and assigns every vector to
// its nearest centroid.
func (e *Engine) trainClustered(vectors [][]float32) {
	n := len(vectors)
	e.nlist = e.chooseNlist(n)
	e.nprobe = e.cfg.Nprobe
	if e.nprobe > e.nlist {
		e.nprobe = e.nlist
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed))

	// Train on the whole set when small, otherwise an unbiased sample of
	// at least TrainPerCluster vectors per cluster.
	trainSize := e.lastTrainSize(n)
	train := vectors
	if trainSize < n {
		picks := rng.Perm(n)[:trainSize]
		train = make([][]float32, trainSize)
		for i, p := range picks {
			train[i] = vectors[p]
		}
	}

	e.logger.Info("training coarse quantizer",
		zap.Int("nlist", e.nlist),
		zap.Int("train_size", len(train)))
	e.centroids = trainCentroids(train, e.nlist, rng)
	e.nlist = len(e.centroids)

	e.lists = make([][]int, e.nlist)
	for slot, v := range vectors {
		c := nearestCentroid(v, e.centroids)
		e.lists[c] = append(e.lists[c], slot)
	}
}

// Insert adds vectors without retraining. On an empty index it behaves
// like Build. For a clustered index the new vectors are assigned to
// existing centroids; centroid drift from repeated inserts is reported
// via Stats, never corrected automatically.
func (e *Engine) Insert(ctx context.Context, vectors [][]float32, metas []docmeta.ChunkMeta) error {
	ctx, span := e.tracer.Start(ctx, "index.Insert",
		trace.WithAttributes(attribute.Int("vectors", len(vectors))))
	defer span.End()

	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) != len(metas) {
		return ErrLengthMismatch
	}
	if len(e.vectors) == 0 {
		_, err := e.Build(ctx, vectors, metas)
		return err
	}

	for i, v := range vectors {
		if len(v) != e.dim {
			return fmt.Errorf("%w: vector %d has dim %d, index has %d", ErrDimensionMismatch, i, len(v), e.dim)
		}
	}

	for i, v := range vectors {
		slot := len(e.vectors)
		e.vectors = append(e.vectors, v)
		e.meta = append(e.meta, metas[i])
		if e.strategy == StrategyClustered {
			c := nearestCentroid(v, e.centroids)
			e.lists[c] = append(e.lists[c], slot)
		}
	}
	e.insertedSinceTrain += len(vectors)

	e.logger.Info("vectors inserted",
		zap.Int("added", len(vectors)),
		zap.Int("total", len(e.vectors)),
		zap.Int("inserted_since_train", e.insertedSinceTrain))
	return nil
}

// Search returns the k nearest stored vectors to the query, optionally
// restricted by a metadata filter. Filtered search over-fetches a larger
// candidate set and falls back to an exhaustive pass before returning
// fewer than k results, so a result set shorter than k means the whole
// index holds fewer than k matches.
func (e *Engine) Search(ctx context.Context, query []float32, k int, filter Filter) ([]Result, error) {
	_, span := e.tracer.Start(ctx, "index.Search",
		trace.WithAttributes(
			attribute.Int("k", k),
			attribute.Int("filter_fields", len(filter)),
			attribute.String("strategy", string(e.strategy))))
	defer span.End()

	if len(e.vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(query) != e.dim {
		return nil, fmt.Errorf("%w: query has dim %d, index has %d", ErrDimensionMismatch, len(query), e.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	if len(filter) == 0 {
		return e.scan(query, e.probe(query, false), k), nil
	}

	fetchK := k * e.cfg.OverfetchMultiplier
	if fetchK > len(e.vectors) {
		fetchK = len(e.vectors)
	}
	candidates := e.scan(query, e.probe(query, false), fetchK)
	matched := filterResults(candidates, filter, k)
	if len(matched) >= k {
		return matched, nil
	}

	// Not enough matches in the candidate set: exhaust the index before
	// returning short.
	exhaustive := e.scan(query, e.probe(query, true), len(e.vectors))
	return filterResults(exhaustive, filter, k), nil
}

// probe returns the slots to score for a query: nil means all slots. For
// a clustered index only the nprobe nearest cells are visited unless all
// is set.
func (e *Engine) probe(query []float32, all bool) []int {
	if e.strategy != StrategyClustered {
		return nil
	}
	nprobe := e.nprobe
	if all {
		nprobe = e.nlist
	}
	var slots []int
	for _, c := range nearestCentroids(query, e.centroids, nprobe) {
		slots = append(slots, e.lists[c]...)
	}
	return slots
}

// scan scores the given slots (all slots when nil) against the query and
// returns the k nearest, ordered by ascending distance.
func (e *Engine) scan(query []float32, slots []int, k int) []Result {
	type scored struct {
		slot int
		dist float32
	}
	var all []scored
	if slots == nil {
		all = make([]scored, len(e.vectors))
		for slot, v := range e.vectors {
			all[slot] = scored{slot: slot, dist: squaredL2(query, v)}
		}
	} else {
		all = make([]scored, 0, len(slots))
		for _, slot := range slots {
			all = append(all, scored{slot: slot, dist: squaredL2(query, e.vectors[slot])})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].slot < all[j].slot
	})
	if k > len(all) {
		k = len(all)
	}

	out := make([]Result, k)
	for i := 0; i < k; i++ {
		out[i] = Result{Meta: e.meta[all[i].slot], Distance: all[i].dist}
	}
	return out
}

func filterResults(candidates []Result, filter Filter, k int) []Result {
	var out []Result
	for i := range candidates {
		if filter.Matches(&candidates[i].Meta) {
			out = append(out, candidates[i])
			if len(out) >= k {
				break
			}
		}
	}
	return out
}

// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	Name        string   `json:"name"`
	Strategy    Strategy `json:"strategy"`
	Dimension   int      `json:"dimension"`
	VectorCount int      `json:"vector_count"`

	Nlist  int `json:"nlist,omitempty"`
	Nprobe int `json:"nprobe,omitempty"`

	TrainedCount       int  `json:"trained_count"`
	InsertedSinceTrain int  `json:"inserted_since_train"`
	RebuildRecommended bool `json:"rebuild_recommended"`

	Migrations []MigrationRecord `json:"migrations,omitempty"`
}

// Stats reports index state, including whether incremental inserts have
// outgrown the last training run.
func (e *Engine) Stats() Stats {
	s := Stats{
		Name:               e.name,
		Strategy:           e.strategy,
		Dimension:          e.dim,
		VectorCount:        len(e.vectors),
		Nlist:              e.nlist,
		Nprobe:             e.nprobe,
		TrainedCount:       e.trainedCount,
		InsertedSinceTrain: e.insertedSinceTrain,
		Migrations:         e.migrations,
	}
	if e.strategy == StrategyClustered && e.trainedCount > 0 {
		s.RebuildRecommended = float64(e.insertedSinceTrain) > rebuildAdvisoryRatio*float64(e.trainedCount)
	}
	return s
}
