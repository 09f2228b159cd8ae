package index

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hazina/internal/docmeta"
)

// persistedState is the on-disk form of one index: the whole state saves
// and loads as a unit so a loaded index is indistinguishable from the one
// that was saved.
type persistedState struct {
	Strategy  Strategy
	Dimension int

	Vectors  [][]float32
	Metadata []docmeta.ChunkMeta

	Nlist     int
	Nprobe    int
	Centroids [][]float32
	Lists     [][]int

	TrainedCount       int
	InsertedSinceTrain int
	Migrations         []MigrationRecord
}

// Path returns the deterministic persistence path for this index.
func (e *Engine) Path() string {
	return filepath.Join(e.cfg.Dir, e.name+".gob")
}

// Save writes the full index state atomically: encode to a temp file in
// the same directory, then rename over the live file.
func (e *Engine) Save() error {
	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	state := persistedState{
		Strategy:           e.strategy,
		Dimension:          e.dim,
		Vectors:            e.vectors,
		Metadata:           e.meta,
		Nlist:              e.nlist,
		Nprobe:             e.nprobe,
		Centroids:          e.centroids,
		Lists:              e.lists,
		TrainedCount:       e.trainedCount,
		InsertedSinceTrain: e.insertedSinceTrain,
		Migrations:         e.migrations,
	}

	path := e.Path()
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(&state); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding index state: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing index file: %w", err)
	}

	e.logger.Info("index saved",
		zap.String("path", path),
		zap.Int("vectors", len(e.vectors)),
		zap.String("strategy", string(e.strategy)))
	return nil
}

// Load restores persisted state, replacing any in-memory contents. A
// missing file returns ErrIndexNotFound; a file that exists but fails to
// decode returns ErrIndexCorrupt — the distinction matters because
// not-found is recoverable by rebuilding from the manifest.
func (e *Engine) Load() error {
	path := e.Path()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var state persistedState
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIndexCorrupt, path, err)
	}

	e.strategy = state.Strategy
	e.dim = state.Dimension
	e.vectors = state.Vectors
	e.meta = state.Metadata
	e.nlist = state.Nlist
	e.nprobe = state.Nprobe
	e.centroids = state.Centroids
	e.lists = state.Lists
	e.trainedCount = state.TrainedCount
	e.insertedSinceTrain = state.InsertedSinceTrain
	e.migrations = state.Migrations

	e.logger.Info("index loaded",
		zap.String("path", path),
		zap.Int("vectors", len(e.vectors)),
		zap.String("strategy", string(e.strategy)))
	return nil
}

// snapshotPath is where Migrate keeps the pre-migration copy.
func (e *Engine) snapshotPath() string {
	return filepath.Join(e.cfg.Dir, e.name+"_backup.gob")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
