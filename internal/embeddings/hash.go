package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic bag-of-words embedder for development
// and tests. Tokens are hashed into buckets and the resulting vector is
// L2-normalized, so texts sharing vocabulary land near each other. It is
// not a semantic model.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a hash embedder with the given dimensionality.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashEmbedder{dim: dim}
}

// EmbedDocuments generates one vector per input text.
func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		vecs[i] = h.embed(text)
	}
	return vecs, nil
}

// EmbedQuery generates a vector for a single query text.
func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return h.embed(text), nil
}

// Dimension returns the embedding dimensionality.
func (h *HashEmbedder) Dimension() int { return h.dim }

// Close is a no-op.
func (h *HashEmbedder) Close() error { return nil }

func (h *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New64a()
		hasher.Write([]byte(token))
		sum := hasher.Sum64()
		bucket := int(sum % uint64(h.dim))
		// Half the tokens subtract so vectors are not all-positive.
		if (sum>>32)&1 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
