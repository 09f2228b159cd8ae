package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(384)
	defer e.Close()

	a, err := e.EmbedQuery(context.Background(), "central bank policy rate decision")
	require.NoError(t, err)
	b, err := e.EmbedQuery(context.Background(), "central bank policy rate decision")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 384)
}

func TestHashEmbedderUnitNorm(t *testing.T) {
	e := NewHashEmbedder(64)

	vec, err := e.EmbedQuery(context.Background(), "deposit insurance coverage limits")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedderSimilarTextsCloser(t *testing.T) {
	e := NewHashEmbedder(384)
	ctx := context.Background()

	base, err := e.EmbedQuery(ctx, "savings account interest rates for students")
	require.NoError(t, err)
	near, err := e.EmbedQuery(ctx, "savings account interest rates for retirees")
	require.NoError(t, err)
	far, err := e.EmbedQuery(ctx, "quarterly earnings call transcript archive")
	require.NoError(t, err)

	assert.Greater(t, dot(base, near), dot(base, far))
}

func TestHashEmbedderEmbedDocuments(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()

	vecs, err := e.EmbedDocuments(ctx, []string{"first passage", "second passage", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 128)
	}

	_, err = e.EmbedDocuments(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = e.EmbedQuery(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHashEmbedderContextCancellation(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedDocuments(ctx, []string{"text"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	_, err := NewEmbedder(Config{Provider: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewEmbedderHashProvider(t *testing.T) {
	e, err := NewEmbedder(Config{Provider: "hash"})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 384, e.Dimension())
}

func TestMeteredEmbedderDelegates(t *testing.T) {
	inner := NewHashEmbedder(64)
	metered := NewMeteredEmbedder(inner, "hash", NewMetrics(zaptest.NewLogger(t)))
	ctx := context.Background()

	vec, err := metered.EmbedQuery(ctx, "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.Equal(t, 64, metered.Dimension())

	vecs, err := metered.EmbedDocuments(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	require.NoError(t, metered.Close())
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	if math.IsNaN(sum) {
		return 0
	}
	return sum
}
