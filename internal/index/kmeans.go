package index

import (
	"math"
	"math/rand"
)

// kmeansMaxIterations bounds Lloyd iterations. Coarse quantizers converge
// quickly; extra iterations buy little recall.
const kmeansMaxIterations = 25

// trainCentroids runs k-means over the training data and returns k
// centroids. Seeding is k-means++ style from the provided random source,
// so training is reproducible for a fixed seed. If k >= len(data), each
// training vector becomes its own centroid.
func trainCentroids(data [][]float32, k int, rng *rand.Rand) [][]float32 {
	if k >= len(data) {
		centroids := make([][]float32, len(data))
		for i, v := range data {
			centroids[i] = append([]float32(nil), v...)
		}
		return centroids
	}

	centroids := seedCentroids(data, k, rng)
	dim := len(data[0])
	assignments := make([]int, len(data))

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range data {
			best := nearestCentroid(v, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range data {
			c := assignments[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Empty cluster: reseed from a random training vector so
				// every cell stays usable.
				centroids[c] = append([]float32(nil), data[rng.Intn(len(data))]...)
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}
	return centroids
}

// seedCentroids picks k initial centroids, spreading them by squared
// distance from already-chosen seeds (k-means++).
func seedCentroids(data [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, append([]float32(nil), data[rng.Intn(len(data))]...))

	dists := make([]float64, len(data))
	for len(centroids) < k {
		var total float64
		last := centroids[len(centroids)-1]
		for i, v := range data {
			d := float64(squaredL2(v, last))
			if len(centroids) == 1 || d < dists[i] {
				dists[i] = d
			}
			total += dists[i]
		}
		if total == 0 {
			// All remaining points coincide with a seed; fall back to
			// uniform picks.
			centroids = append(centroids, append([]float32(nil), data[rng.Intn(len(data))]...))
			continue
		}
		target := rng.Float64() * total
		var acc float64
		pick := len(data) - 1
		for i := range data {
			acc += dists[i]
			if acc >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, append([]float32(nil), data[pick]...))
	}
	return centroids
}

// nearestCentroid returns the index of the closest centroid by squared L2.
func nearestCentroid(v []float32, centroids [][]float32) int {
	best := 0
	bestDist := float32(math.MaxFloat32)
	for i, c := range centroids {
		if d := squaredL2(v, c); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// nearestCentroids returns the indexes of the n closest centroids,
// ordered nearest first.
func nearestCentroids(v []float32, centroids [][]float32, n int) []int {
	if n > len(centroids) {
		n = len(centroids)
	}
	type scored struct {
		idx  int
		dist float32
	}
	all := make([]scored, len(centroids))
	for i, c := range centroids {
		all[i] = scored{idx: i, dist: squaredL2(v, c)}
	}
	// Partial selection sort: n is small (nprobe) relative to nlist.
	out := make([]int, n)
	for i := 0; i < n; i++ {
		min := i
		for j := i + 1; j < len(all); j++ {
			if all[j].dist < all[min].dist {
				min = j
			}
		}
		all[i], all[min] = all[min], all[i]
		out[i] = all[i].idx
	}
	return out
}
