package index

import (
	"testing"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/memfaiss"
	"github.com/hupe1980/gofaiss/testutil"
	"github.com/hupe1980/gofaiss/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRuntime returns a runtime over a fresh in-process library and checks on
// cleanup that every native object was freed exactly once.
func newRuntime(t *testing.T, opts ...gofaiss.Option) (*gofaiss.Runtime, *memfaiss.Library) {
	t.Helper()
	lib := memfaiss.New()
	t.Cleanup(func() {
		assert.Zero(t, lib.Live(), "native objects leaked")
		assert.Empty(t, lib.Violations(), "ownership violations")
	})
	return gofaiss.New(lib, opts...), lib
}

func newFlat(t *testing.T, rt *gofaiss.Runtime, d int) *Flat {
	t.Helper()
	f, err := NewFlatL2(rt, d)
	require.NoError(t, err)
	return f
}

func newPCA(t *testing.T, rt *gofaiss.Runtime, dIn, dOut int) *transform.PCAMatrix {
	t.Helper()
	pca, err := transform.NewPCAMatrix(rt, dIn, dOut, 0, false)
	require.NoError(t, err)
	return pca
}

// newPipeline builds PCA 8->4 in front of a flat index over 4 dimensions.
func newPipeline(t *testing.T, rt *gofaiss.Runtime) *PreTransform[*Flat] {
	t.Helper()
	pt, err := NewPreTransform(newPCA(t, rt, 8, 4), newFlat(t, rt, 4))
	require.NoError(t, err)
	return pt
}

// filled trains idx on the reference data and adds it.
func filled[I Index](t *testing.T, idx I) I {
	t.Helper()
	data, _ := testutil.Reference()
	require.NoError(t, idx.Train(data))
	require.NoError(t, idx.Add(data))
	return idx
}

func labels(res SearchResult) []int64 {
	out := make([]int64, len(res.Labels))
	for i, l := range res.Labels {
		out[i] = int64(l)
	}
	return out
}

func zero() []float32 { return make([]float32, 8) }
