package index

import (
	"testing"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/internal/memfaiss"
	"github.com/hupe1980/gofaiss/native"
	"github.com/hupe1980/gofaiss/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreTransform_Pipeline(t *testing.T) {
	rt, lib := newRuntime(t)

	pca := newPCA(t, rt, 8, 4)
	flat := newFlat(t, rt, 4)
	pt, err := NewPreTransform(pca, flat)
	require.NoError(t, err)

	// Children now belong to the composite.
	_, err = pca.NativeHandle().Ptr()
	assert.ErrorIs(t, err, gofaiss.ErrReleased)
	assert.ErrorIs(t, flat.Add(make([]float32, 4)), gofaiss.ErrReleased)
	require.NoError(t, pca.Close())
	require.NoError(t, flat.Close())
	assert.Equal(t, 3, lib.Live())

	assert.True(t, pt.OwnsChildren())
	assert.Equal(t, 8, pt.D())
	assert.False(t, pt.IsTrained())

	filled(t, pt)
	assert.True(t, pt.IsTrained())
	assert.Equal(t, int64(5), pt.NTotal())

	res, err := pt.Search(zero(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 0, 3, 4}, labels(res))
	assert.IsIncreasing(t, res.Distances)

	res, err = pt.Search(testutil.Fill(8, 100), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 0, 1, 2}, labels(res))

	require.NoError(t, pt.Reset())
	assert.Equal(t, int64(0), pt.NTotal())

	require.NoError(t, pt.Close())
	assert.Equal(t, 0, lib.Live())
}

func TestPreTransform_ViewsOfChildrenReleased(t *testing.T) {
	rt, lib := newRuntime(t)

	pca := newPCA(t, rt, 8, 4)
	flat := newFlat(t, rt, 4)
	flatView := flat.AsIndex()
	ci, err := Concurrent(flat)
	require.NoError(t, err)

	pt, err := NewPreTransform(pca, flat)
	require.NoError(t, err)

	// The wrapped index is reachable only through the pipeline.
	assert.ErrorIs(t, flatView.Add(make([]float32, 4)), gofaiss.ErrReleased)
	_, err = ci.SearchShared(make([]float32, 4), 1)
	assert.ErrorIs(t, err, gofaiss.ErrReleased)
	assert.Zero(t, flatView.NTotal())
	assert.Zero(t, pt.NTotal())

	filled(t, pt)
	assert.Equal(t, int64(5), pt.NTotal())
	assert.Zero(t, flatView.NTotal())

	require.NoError(t, pt.Close())
	assert.Zero(t, flatView.D())
	require.NoError(t, flatView.Close())
	assert.Zero(t, rt.MemoryUsage())
	assert.Empty(t, lib.Violations())
}

func TestPreTransform_AddBeforeTrain(t *testing.T) {
	rt, _ := newRuntime(t)
	pt := newPipeline(t, rt)
	defer pt.Close()

	data, _ := testutil.Reference()
	err := pt.Add(data)
	var oe *gofaiss.OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, native.StatusFaissException, oe.Status)
	assert.Contains(t, oe.Message, "not trained")
	assert.Equal(t, int64(0), rt.MemoryUsage())

	// Still valid.
	filled(t, pt)
	assert.Equal(t, int64(5), pt.NTotal())
}

func TestPreTransform_ConstructionFailureKeepsChildren(t *testing.T) {
	rt, _ := newRuntime(t)

	pca := newPCA(t, rt, 8, 4)
	flat := newFlat(t, rt, 5)

	_, err := NewPreTransform(pca, flat)
	var ce *gofaiss.ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "IndexPreTransform", ce.Op)
	assert.Contains(t, ce.Message, "dimension")

	// Caller still owns both.
	assert.Equal(t, 8, pca.DIn())
	assert.Equal(t, 5, flat.D())
	require.NoError(t, pca.Close())
	require.NoError(t, flat.Close())
}

func TestPreTransform_ChildChecks(t *testing.T) {
	t.Run("released child", func(t *testing.T) {
		rt, _ := newRuntime(t)
		pca := newPCA(t, rt, 8, 4)
		flat := newFlat(t, rt, 4)
		require.NoError(t, flat.Close())

		_, err := NewPreTransform(pca, flat)
		assert.ErrorIs(t, err, gofaiss.ErrReleased)
		assert.Equal(t, 8, pca.DIn())
		require.NoError(t, pca.Close())
	})

	t.Run("view child", func(t *testing.T) {
		rt, _ := newRuntime(t)
		pca := newPCA(t, rt, 8, 4)
		flat := newFlat(t, rt, 4)
		defer flat.Close()

		_, err := NewPreTransform(pca, flat.AsIndex())
		assert.ErrorIs(t, err, gofaiss.ErrNotOwner)
		require.NoError(t, pca.Close())
	})

	t.Run("runtime mismatch", func(t *testing.T) {
		rt, _ := newRuntime(t)
		other := gofaiss.New(memfaiss.New())
		pca := newPCA(t, rt, 8, 4)
		flat := newFlat(t, other, 4)
		defer flat.Close()

		_, err := NewPreTransform(pca, flat)
		assert.ErrorIs(t, err, gofaiss.ErrRuntimeMismatch)
		require.NoError(t, pca.Close())
	})

	t.Run("native constructor fault", func(t *testing.T) {
		rt, lib := newRuntime(t)
		lib.Fail("IndexPreTransformNewWithTransform", native.StatusStdException)
		pca := newPCA(t, rt, 8, 4)
		flat := newFlat(t, rt, 4)

		_, err := NewPreTransform(pca, flat)
		var ce *gofaiss.ConstructionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, native.StatusStdException, ce.Status)
		require.NoError(t, pca.Close())
		require.NoError(t, flat.Close())
	})
}

func TestPreTransform_NullWithSuccessPanics(t *testing.T) {
	rt, lib := newRuntime(t)
	lib.ReturnNull("IndexPreTransformNewWithTransform")
	pca := newPCA(t, rt, 8, 4)
	flat := newFlat(t, rt, 4)

	assert.Panics(t, func() { _, _ = NewPreTransform(pca, flat) })

	require.NoError(t, pca.Close())
	require.NoError(t, flat.Close())
}

func TestPreTransform_Prepend(t *testing.T) {
	rt, lib := newRuntime(t)

	pt, err := NewPreTransform(newPCA(t, rt, 4, 3), newFlat(t, rt, 3))
	require.NoError(t, err)
	defer pt.Close()
	assert.Equal(t, 4, pt.D())

	outer := newPCA(t, rt, 8, 4)
	require.NoError(t, pt.PrependTransform(outer))
	assert.Equal(t, 8, pt.D())
	assert.False(t, outer.NativeHandle().Valid())
	require.NoError(t, outer.Close())
	assert.Equal(t, 4, lib.Live())

	filled(t, pt)
	data, _ := testutil.Reference()
	res, err := pt.Search(data[3*8:4*8], 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, labels(res))
}

func TestPreTransform_PrependFailureKeepsTransform(t *testing.T) {
	rt, _ := newRuntime(t)
	pt := newPipeline(t, rt)
	defer pt.Close()

	bad := newPCA(t, rt, 16, 6)
	err := pt.PrependTransform(bad)
	var oe *gofaiss.OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "prepend_transform", oe.Op)
	assert.Equal(t, native.StatusFaissException, oe.Status)

	assert.Equal(t, 8, pt.D())
	assert.Equal(t, 16, bad.DIn())
	require.NoError(t, bad.Close())

	// The composite is still usable.
	filled(t, pt)
	assert.Equal(t, int64(5), pt.NTotal())
}

func TestPreTransform_PrependChecks(t *testing.T) {
	rt, lib := newRuntime(t)
	pt := newPipeline(t, rt)
	defer pt.Close()

	released := newPCA(t, rt, 16, 8)
	require.NoError(t, released.Close())
	assert.ErrorIs(t, pt.PrependTransform(released), gofaiss.ErrReleased)

	other := gofaiss.New(memfaiss.New())
	foreign := newPCA(t, other, 16, 8)
	defer foreign.Close()
	assert.ErrorIs(t, pt.PrependTransform(foreign), gofaiss.ErrRuntimeMismatch)

	// A composite that does not own its chain would never free lt.
	ptr, err := pt.NativeHandle().Ptr()
	require.NoError(t, err)
	lib.IndexPreTransformSetOwnFields(ptr, false)
	assert.False(t, pt.OwnsChildren())

	lt := newPCA(t, rt, 16, 8)
	assert.ErrorIs(t, pt.PrependTransform(lt), gofaiss.ErrNotOwner)
	assert.Equal(t, 16, lt.DIn())
	require.NoError(t, lt.Close())

	lib.IndexPreTransformSetOwnFields(ptr, true)
	assert.Equal(t, 8, pt.D())
}

func TestPreTransform_FromFactory(t *testing.T) {
	rt, _ := newRuntime(t)

	idx, err := Factory(rt, 8, "PCA4,Flat", MetricL2)
	require.NoError(t, err)

	pt, err := IntoPreTransform(idx)
	require.NoError(t, err)
	defer pt.Close()
	assert.True(t, pt.OwnsChildren())

	filled(t, pt)
	res, err := pt.Search(zero(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 0, 3, 4}, labels(res))
}
