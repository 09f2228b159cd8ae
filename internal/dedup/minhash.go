// Package dedup provides multi-level content deduplication: exact hashing,
// URL identity, and MinHash-based near-duplicate detection.
package dedup

import (
	"errors"
	"hash/fnv"
	"math/rand"
	"strings"
)

const (
	// maxHash caps hash values to 32 bits, matching the shingle hash width.
	maxHash = (1 << 32) - 1

	// mersennePrime is 2^61-1, used as the modulus of the universal hash
	// family. Large enough that collisions across the family are negligible.
	mersennePrime = (1 << 61) - 1
)

// ErrSketchWidthMismatch is returned when two sketches of different widths
// are compared.
var ErrSketchWidthMismatch = errors.New("dedup: sketch width mismatch")

// Shingles returns the set of lowercased character n-grams of text.
// Text shorter than n yields the single whole-string shingle; empty text
// yields an empty set.
func Shingles(text string, n int) map[string]struct{} {
	text = strings.ToLower(strings.TrimSpace(text))
	shingles := make(map[string]struct{})
	if text == "" {
		return shingles
	}
	if len(text) < n {
		shingles[text] = struct{}{}
		return shingles
	}
	for i := 0; i+n <= len(text); i++ {
		shingles[text[i:i+n]] = struct{}{}
	}
	return shingles
}

// SketchFamily is a fixed family of pairwise-independent hash functions.
// Two sketches are comparable only when built from the same family, so one
// family instance is shared per Deduplicator.
type SketchFamily struct {
	width int
	a     []uint64
	b     []uint64
}

// NewSketchFamily creates a hash family of the given width. The seed fixes
// the family, making sketches deterministic across processes.
func NewSketchFamily(width int, seed int64) *SketchFamily {
	rng := rand.New(rand.NewSource(seed))
	f := &SketchFamily{
		width: width,
		a:     make([]uint64, width),
		b:     make([]uint64, width),
	}
	for i := 0; i < width; i++ {
		f.a[i] = uint64(rng.Int63n(maxHash)) + 1
		f.b[i] = uint64(rng.Int63n(maxHash + 1))
	}
	return f
}

// Width returns the sketch width of this family.
func (f *SketchFamily) Width() int { return f.width }

// Sketch computes the MinHash sketch of a shingle set: slot i holds the
// minimum of hash function i over all shingles. An empty shingle set yields
// an all-max sketch, which matches only other empty sketches slot for slot.
func (f *SketchFamily) Sketch(shingles map[string]struct{}) []uint64 {
	values := make([]uint64, f.width)
	for i := range values {
		values[i] = maxHash
	}
	for shingle := range shingles {
		h := fnv.New32a()
		h.Write([]byte(shingle))
		base := uint64(h.Sum32())
		for i := 0; i < f.width; i++ {
			v := (f.a[i]*base + f.b[i]) % mersennePrime & maxHash
			if v < values[i] {
				values[i] = v
			}
		}
	}
	return values
}

// Jaccard estimates the Jaccard similarity of the two underlying sets as
// the fraction of sketch slots on which they agree.
func Jaccard(a, b []uint64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrSketchWidthMismatch
	}
	if len(a) == 0 {
		return 0, nil
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a)), nil
}
