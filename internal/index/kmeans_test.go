package index

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobData(clusters, perCluster int) [][]float32 {
	var data [][]float32
	for c := 0; c < clusters; c++ {
		for p := 0; p < perCluster; p++ {
			data = append(data, []float32{float32(c * 100), float32(p)})
		}
	}
	return data
}

func TestTrainCentroidsSeparatesBlobs(t *testing.T) {
	data := blobData(4, 25)
	rng := rand.New(rand.NewSource(42))

	centroids := trainCentroids(data, 4, rng)
	require.Len(t, centroids, 4)

	// Every blob member must land in the same cell as its blob-mates.
	for c := 0; c < 4; c++ {
		first := nearestCentroid(data[c*25], centroids)
		for p := 1; p < 25; p++ {
			assert.Equal(t, first, nearestCentroid(data[c*25+p], centroids),
				"blob %d point %d assigned to a different cell", c, p)
		}
	}
}

func TestTrainCentroidsDeterministicForSeed(t *testing.T) {
	data := blobData(3, 20)

	a := trainCentroids(data, 3, rand.New(rand.NewSource(7)))
	b := trainCentroids(data, 3, rand.New(rand.NewSource(7)))
	assert.Equal(t, a, b)
}

func TestTrainCentroidsKAtLeastData(t *testing.T) {
	data := [][]float32{{1, 0}, {2, 0}, {3, 0}}
	centroids := trainCentroids(data, 5, rand.New(rand.NewSource(1)))
	assert.Len(t, centroids, 3)
}

func TestNearestCentroidsOrdering(t *testing.T) {
	centroids := [][]float32{{0, 0}, {10, 0}, {20, 0}, {30, 0}}

	got := nearestCentroids([]float32{11, 0}, centroids, 3)
	assert.Equal(t, []int{1, 2, 0}, got)

	// n larger than the centroid count is clamped.
	got = nearestCentroids([]float32{0, 0}, centroids, 10)
	assert.Len(t, got, 4)
	assert.Equal(t, 0, got[0])
}

func TestTrainCentroidsIdenticalPoints(t *testing.T) {
	data := [][]float32{{5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}}
	centroids := trainCentroids(data, 2, rand.New(rand.NewSource(3)))
	require.Len(t, centroids, 2)
	for _, c := range centroids {
		assert.Equal(t, []float32{5, 5}, c)
	}
}
