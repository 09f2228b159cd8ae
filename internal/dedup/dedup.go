package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DuplicateKind identifies how a document was found to duplicate another.
type DuplicateKind string

const (
	// KindExact means the content hash matched a registered document.
	KindExact DuplicateKind = "exact"
	// KindNear means the MinHash similarity crossed the threshold.
	KindNear DuplicateKind = "near"
	// KindSameURL means the URL was registered under another document id.
	KindSameURL DuplicateKind = "url"
)

// Verdict is the result of a duplicate check.
type Verdict struct {
	IsDuplicate bool          `json:"is_duplicate"`
	Kind        DuplicateKind `json:"kind,omitempty"`
	DuplicateOf string        `json:"duplicate_of,omitempty"`
	Similarity  float64       `json:"similarity,omitempty"`
}

// Unique is the verdict for a non-duplicate document.
var Unique = Verdict{}

// Config holds deduplicator parameters.
type Config struct {
	// Dir is the directory for the persistent registry.
	Dir string

	// SimilarityThreshold flags near-duplicates at or above this estimated
	// Jaccard similarity.
	SimilarityThreshold float64

	// ShingleSize is the character n-gram length.
	ShingleSize int

	// SketchWidth is the MinHash sketch width.
	SketchWidth int

	// Seed fixes the hash family so sketches are stable across processes.
	Seed int64
}

// ApplyDefaults sets defaults for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.85
	}
	if c.ShingleSize == 0 {
		c.ShingleSize = 5
	}
	if c.SketchWidth == 0 {
		c.SketchWidth = 128
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
}

// fingerprint is one persisted sketch record. Records keep registration
// order so near-duplicate ties resolve to the first-registered document.
type fingerprint struct {
	DocID  string   `json:"doc_id"`
	Sketch []uint64 `json:"sketch"`
}

// Deduplicator classifies incoming documents as canonical or duplicates.
//
// Registry state is durable: the hash and URL maps plus the similarity
// sketches persist as JSON under Config.Dir, so a fresh process reproduces
// identical verdicts. Sketches are persisted too (not just held in memory)
// so near-duplicate detection also works across process restarts; at a
// sketch width of 128 this costs ~1KB per document.
//
// Single-writer: one ingestion run owns the registry for its duration.
type Deduplicator struct {
	cfg    Config
	family *SketchFamily
	logger *zap.Logger

	hashToID map[string]string
	urlToID  map[string]string
	sketches []fingerprint
	sketched map[string]int // docID -> index into sketches
}

// New creates a Deduplicator rooted at cfg.Dir, loading any persisted state.
func New(cfg Config, logger *zap.Logger) (*Deduplicator, error) {
	cfg.ApplyDefaults()
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dedup: registry dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Deduplicator{
		cfg:      cfg,
		family:   NewSketchFamily(cfg.SketchWidth, cfg.Seed),
		logger:   logger,
		hashToID: make(map[string]string),
		urlToID:  make(map[string]string),
		sketched: make(map[string]int),
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

// ContentHash returns the hex SHA-256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Check classifies a document against the registry without mutating it.
//
// Check order: URL identity, then exact content hash, then near-duplicate
// sketch comparison against every registered fingerprint in registration
// order. Empty text is Unique (its degenerate sketch matches nothing that
// has real content).
func (d *Deduplicator) Check(docID, text, url string) (Verdict, error) {
	if url != "" {
		if original, ok := d.urlToID[url]; ok && original != docID {
			return Verdict{IsDuplicate: true, Kind: KindSameURL, DuplicateOf: original, Similarity: 1.0}, nil
		}
	}

	hash := ContentHash(text)
	if original, ok := d.hashToID[hash]; ok && original != docID {
		return Verdict{IsDuplicate: true, Kind: KindExact, DuplicateOf: original, Similarity: 1.0}, nil
	}

	shingles := Shingles(text, d.cfg.ShingleSize)
	if len(shingles) == 0 {
		return Unique, nil
	}
	sketch := d.family.Sketch(shingles)

	for _, fp := range d.sketches {
		if fp.DocID == docID {
			continue
		}
		similarity, err := Jaccard(sketch, fp.Sketch)
		if err != nil {
			return Unique, fmt.Errorf("comparing sketches: %w", err)
		}
		if similarity >= d.cfg.SimilarityThreshold {
			return Verdict{IsDuplicate: true, Kind: KindNear, DuplicateOf: fp.DocID, Similarity: similarity}, nil
		}
	}

	return Unique, nil
}

// Register persists a new canonical fingerprint. Call only after Check
// returned Unique. Registering the same docID and text twice is a no-op.
func (d *Deduplicator) Register(docID, text, url string) error {
	d.hashToID[ContentHash(text)] = docID
	if url != "" {
		d.urlToID[url] = docID
	}

	shingles := Shingles(text, d.cfg.ShingleSize)
	if len(shingles) > 0 {
		sketch := d.family.Sketch(shingles)
		if idx, ok := d.sketched[docID]; ok {
			d.sketches[idx].Sketch = sketch
		} else {
			d.sketched[docID] = len(d.sketches)
			d.sketches = append(d.sketches, fingerprint{DocID: docID, Sketch: sketch})
		}
	}

	if err := d.save(); err != nil {
		return fmt.Errorf("persisting dedup registry: %w", err)
	}

	d.logger.Debug("registered canonical document",
		zap.String("doc_id", docID),
		zap.Int("registered_total", len(d.hashToID)))
	return nil
}

// Stats reports registry sizes.
func (d *Deduplicator) Stats() map[string]int {
	return map[string]int{
		"unique_hashes":      len(d.hashToID),
		"unique_urls":        len(d.urlToID),
		"minhash_signatures": len(d.sketches),
	}
}

func (d *Deduplicator) hashPath() string   { return filepath.Join(d.cfg.Dir, "dedup_hashes.json") }
func (d *Deduplicator) urlPath() string    { return filepath.Join(d.cfg.Dir, "dedup_urls.json") }
func (d *Deduplicator) sketchPath() string { return filepath.Join(d.cfg.Dir, "dedup_sketches.json") }

func (d *Deduplicator) load() error {
	if err := loadJSON(d.hashPath(), &d.hashToID); err != nil {
		return err
	}
	if err := loadJSON(d.urlPath(), &d.urlToID); err != nil {
		return err
	}
	if err := loadJSON(d.sketchPath(), &d.sketches); err != nil {
		return err
	}
	for i, fp := range d.sketches {
		if len(fp.Sketch) != d.cfg.SketchWidth {
			return fmt.Errorf("dedup: persisted sketch for %s has width %d, registry configured for %d",
				fp.DocID, len(fp.Sketch), d.cfg.SketchWidth)
		}
		d.sketched[fp.DocID] = i
	}
	return nil
}

func (d *Deduplicator) save() error {
	if err := os.MkdirAll(d.cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("creating registry dir: %w", err)
	}
	if err := saveJSON(d.hashPath(), d.hashToID); err != nil {
		return err
	}
	if err := saveJSON(d.urlPath(), d.urlToID); err != nil {
		return err
	}
	return saveJSON(d.sketchPath(), d.sketches)
}

// loadJSON decodes a JSON file into v; a missing file leaves v untouched.
func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// saveJSON writes v to path via a temp file and rename so a crash never
// leaves a truncated store.
func saveJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
