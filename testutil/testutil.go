package testutil

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
)

// RNG is a seeded, goroutine-safe vector generator.
type RNG struct {
	mu   sync.Mutex
	seed int64
	src  *rand.Rand
}

// NewRNG returns a generator that replays the same stream for the same seed.
func NewRNG(seed int64) *RNG {
	r := &RNG{seed: seed}
	r.Reset()
	return r
}

// Reset rewinds the stream to its seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	r.src = rand.New(rand.NewPCG(uint64(r.seed), 0x9e3779b97f4a7c15))
	r.mu.Unlock()
}

// Seed returns the seed the stream started from.
func (r *RNG) Seed() int64 { return r.seed }

// rows allocates n*d values and fills each row with gen under the lock.
func (r *RNG) rows(n, d int, gen func(row []float32)) []float32 {
	data := make([]float32, n*d)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range n {
		gen(data[i*d : (i+1)*d])
	}
	return data
}

// Uniform returns n row-major vectors with components in [0, 1).
func (r *RNG) Uniform(n, d int) []float32 {
	return r.rows(n, d, func(row []float32) {
		for j := range row {
			row[j] = r.src.Float32()
		}
	})
}

// Gaussian returns n row-major standard normal vectors scaled to unit length.
func (r *RNG) Gaussian(n, d int) []float32 {
	return r.rows(n, d, func(row []float32) {
		var sq float64
		for j := range row {
			v := r.src.NormFloat64()
			row[j] = float32(v)
			sq += v * v
		}
		if sq == 0 {
			return
		}
		scale := float32(1 / math.Sqrt(sq))
		for j := range row {
			row[j] *= scale
		}
	})
}

// Clustered returns n row-major vectors scattered by spread around clusters
// unit centroids. Row i belongs to cluster i % clusters.
func (r *RNG) Clustered(n, d, clusters int, spread float32) []float32 {
	centroids := r.Gaussian(clusters, d)
	i := 0
	return r.rows(n, d, func(row []float32) {
		c := (i % clusters) * d
		for j := range row {
			row[j] = centroids[c+j] + spread*float32(r.src.NormFloat64())
		}
		i++
	})
}

// Reference is a small 8-dimensional data set with well separated squared L2
// distances from the origin (450, 8, 3, 80000 and 86450).
func Reference() (data []float32, d int) {
	return []float32{
		7.5, -7.5, 7.5, -7.5, 7.5, 7.5, 7.5, 7.5,
		-1, 1, 1, 1, 1, 1, 1, -1,
		0, 0, 0, 1, 1, 0, 0, -1,
		100, 100, 100, 100, -100, 100, 100, 100,
		120, 100, 100, 105, -100, 100, 100, 105,
	}, 8
}

// Fill returns a vector of dimension d with every component set to v.
func Fill(d int, v float32) []float32 {
	vec := make([]float32, d)
	for i := range vec {
		vec[i] = v
	}
	return vec
}

// ExactL2 returns the labels of the k nearest rows of data to query by
// squared L2 distance, closest first. Ties keep row order.
func ExactL2(query, data []float32, d, k int) []int64 {
	type scored struct {
		label int64
		dist  float32
	}
	n := len(data) / d
	all := make([]scored, n)
	for i := range n {
		var s float32
		for j := range d {
			diff := query[j] - data[i*d+j]
			s += diff * diff
		}
		all[i] = scored{label: int64(i), dist: s}
	}
	slices.SortStableFunc(all, func(a, b scored) int { return cmp.Compare(a.dist, b.dist) })

	labels := make([]int64, 0, k)
	for i := range min(k, n) {
		labels = append(labels, all[i].label)
	}
	return labels
}

// ComputeRecall returns the share of the first min(len) ground-truth labels
// found among approximate. Two empty lists have recall 1.
func ComputeRecall(groundTruth, approximate []int64) float64 {
	k := min(len(groundTruth), len(approximate))
	if k == 0 {
		if len(groundTruth) == len(approximate) {
			return 1
		}
		return 0
	}
	truth := make(map[int64]bool, k)
	for _, label := range groundTruth[:k] {
		truth[label] = true
	}
	var hits int
	for _, label := range approximate {
		if truth[label] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}
