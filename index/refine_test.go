package index

import (
	"testing"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/native"
	"github.com/hupe1980/gofaiss/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefineFlat_MatchesExactSearch(t *testing.T) {
	rt, lib := newRuntime(t)

	exact := filled(t, newFlat(t, rt, 8))
	defer exact.Close()

	r, err := NewRefineFlat(newFlat(t, rt, 8))
	require.NoError(t, err)
	defer r.Close()
	assert.True(t, r.OwnsChildren())
	assert.Equal(t, float32(1), r.KFactor())
	assert.Equal(t, 3, lib.Live())

	filled(t, r)
	assert.Equal(t, int64(5), r.NTotal())

	want, err := exact.Search(zero(), 5)
	require.NoError(t, err)
	got, err := r.Search(zero(), 5)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, []int64{2, 1, 0, 3, 4}, labels(got))
	assert.Equal(t, []float32{3, 8, 450, 80000, 86450}, got.Distances)
	for _, dist := range got.Distances {
		assert.GreaterOrEqual(t, dist, float32(0))
	}
}

func TestRefineFlat_KFactor(t *testing.T) {
	rt, _ := newRuntime(t)

	r, err := NewRefineFlat(newFlat(t, rt, 8))
	require.NoError(t, err)
	defer r.Close()
	filled(t, r)

	require.NoError(t, r.SetKFactor(3.25))
	assert.Equal(t, float32(3.25), r.KFactor())

	res, err := r.Search(zero(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, labels(res))

	require.NoError(t, r.SetKFactor(0.5))
	_, err = r.Search(zero(), 2)
	var oe *gofaiss.OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, native.StatusFaissException, oe.Status)
	assert.Contains(t, oe.Message, "k_factor")

	// The index survives the failed search.
	require.NoError(t, r.SetKFactor(1))
	_, err = r.Search(zero(), 2)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.Zero(t, r.KFactor())
	assert.ErrorIs(t, r.SetKFactor(2), gofaiss.ErrReleased)
}

func TestRefineFlat_NonEmptyBase(t *testing.T) {
	rt, _ := newRuntime(t)

	b := filled(t, newFlat(t, rt, 8))
	_, err := NewRefineFlat(b)
	var ce *gofaiss.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "IndexRefineFlat", ce.Op)
	assert.Contains(t, ce.Message, "empty")

	// Caller keeps the base.
	assert.Equal(t, int64(5), b.NTotal())
	require.NoError(t, b.Close())
}

func TestRefineFlat_OverPipeline(t *testing.T) {
	rt, lib := newRuntime(t)

	r, err := NewRefineFlat(newPipeline(t, rt))
	require.NoError(t, err)
	assert.Equal(t, 4, lib.Live())
	assert.True(t, r.SupportsConcurrentSearch())

	filled(t, r)
	res, err := r.Search(zero(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 0, 3, 4}, labels(res))
	assert.Equal(t, []float32{3, 8, 450, 80000, 86450}, res.Distances)

	res, err = r.Search(testutil.Fill(8, 100), 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 0}, labels(res))

	require.NoError(t, r.Close())
	assert.Zero(t, lib.Live())
}

func TestRefineFlat_UntrainedBase(t *testing.T) {
	rt, _ := newRuntime(t)

	r, err := NewRefineFlat(newPipeline(t, rt))
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.IsTrained())
	data, _ := testutil.Reference()
	assert.Error(t, r.Add(data))
	_, err = r.Search(zero(), 1)
	assert.Error(t, err)
	assert.Zero(t, r.NTotal())
}
