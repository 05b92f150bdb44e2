package index

import (
	"testing"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/native"
	"github.com/hupe1980/gofaiss/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone_Flat(t *testing.T) {
	rt, lib := newRuntime(t)
	f := filled(t, newFlat(t, rt, 8))
	defer f.Close()

	c, err := f.TryClone()
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, 2, lib.Live())
	assert.Equal(t, int64(320), rt.MemoryUsage())

	require.NoError(t, c.Add(testutil.Fill(8, 7)))
	assert.Equal(t, int64(6), c.NTotal())
	assert.Equal(t, int64(5), f.NTotal())

	require.NoError(t, f.Reset())
	assert.Zero(t, f.NTotal())
	assert.Equal(t, int64(6), c.NTotal())
}

func TestClone_PipelineOwnsCopies(t *testing.T) {
	rt, lib := newRuntime(t)
	pt := filled(t, newPipeline(t, rt))

	c, err := pt.TryClone()
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.OwnsChildren())
	assert.Equal(t, 6, lib.Live())

	require.NoError(t, pt.Close())
	assert.Equal(t, 3, lib.Live())

	res, err := c.Search(zero(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 0, 3, 4}, labels(res))
}

func TestClone_PipelineMutationIsIndependent(t *testing.T) {
	rt, _ := newRuntime(t)
	pt := filled(t, newPipeline(t, rt))
	defer pt.Close()

	c, err := pt.TryClone()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Add(testutil.Fill(8, 7)))
	assert.Equal(t, int64(6), c.NTotal())
	assert.Equal(t, int64(5), pt.NTotal())

	require.NoError(t, pt.Reset())
	assert.Zero(t, pt.NTotal())
	assert.Equal(t, int64(6), c.NTotal())

	require.NoError(t, c.Reset())
	require.NoError(t, pt.Add(testutil.Fill(8, 1)))
	assert.Equal(t, int64(1), pt.NTotal())
	assert.Zero(t, c.NTotal())
}

func TestClone_Refine(t *testing.T) {
	rt, _ := newRuntime(t)
	r, err := NewRefineFlat(newFlat(t, rt, 8))
	require.NoError(t, err)
	defer r.Close()
	filled(t, r)
	require.NoError(t, r.SetKFactor(4))

	c, err := r.TryClone()
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, float32(4), c.KFactor())

	require.NoError(t, c.SetKFactor(1.5))
	assert.Equal(t, float32(4), r.KFactor())

	require.NoError(t, c.Add(testutil.Fill(8, 7)))
	assert.Equal(t, int64(6), c.NTotal())
	assert.Equal(t, int64(5), r.NTotal())

	require.NoError(t, r.Reset())
	assert.Zero(t, r.NTotal())
	assert.Equal(t, int64(6), c.NTotal())

	res, err := c.Search(zero(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, labels(res))
}

func TestClone_Generic(t *testing.T) {
	rt, _ := newRuntime(t)
	pt := filled(t, newPipeline(t, rt))
	defer pt.Close()

	x, err := Clone(pt)
	require.NoError(t, err)
	assert.False(t, x.SupportsConcurrentSearch())

	back, err := IntoPreTransform(x)
	require.NoError(t, err)
	defer back.Close()
	assert.Equal(t, int64(5), back.NTotal())
}

func TestClone_MemoryLimit(t *testing.T) {
	rt, lib := newRuntime(t, gofaiss.WithMemoryLimit(200))
	f := filled(t, newFlat(t, rt, 8))
	defer f.Close()

	_, err := f.TryClone()
	assert.ErrorIs(t, err, gofaiss.ErrMemoryLimitExceeded)
	assert.Equal(t, 1, lib.Live())
	assert.Equal(t, int64(160), rt.MemoryUsage())
}

func TestClone_NativeFailure(t *testing.T) {
	rt, lib := newRuntime(t)
	f := newFlat(t, rt, 8)
	defer f.Close()

	lib.Fail("CloneIndex", native.StatusStdException)
	_, err := Clone(f)
	var oe *gofaiss.OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "clone", oe.Op)
	assert.Equal(t, native.StatusStdException, oe.Status)
	assert.Contains(t, oe.Message, "CloneIndex")

	require.NoError(t, f.Close())
	_, err = f.TryClone()
	assert.ErrorIs(t, err, gofaiss.ErrReleased)
}
