package gofaiss_test

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/index"
	"github.com/hupe1980/gofaiss/internal/memfaiss"
	"github.com/hupe1980/gofaiss/testutil"
	"github.com/hupe1980/gofaiss/transform"
)

func Example() {
	// gofaiss.Open() loads libfaiss_c; the in-process library keeps the
	// example self-contained.
	rt := gofaiss.New(memfaiss.New())

	pca, err := transform.NewPCAMatrix(rt, 8, 4, 0, false)
	if err != nil {
		panic(err)
	}
	flat, err := index.NewFlatL2(rt, 4)
	if err != nil {
		panic(err)
	}

	// The pipeline takes ownership of pca and flat.
	pipeline, err := index.NewPreTransform(pca, flat)
	if err != nil {
		_ = pca.Close()
		_ = flat.Close()
		panic(err)
	}
	defer pipeline.Close()

	data, d := testutil.Reference()
	if err := pipeline.Train(data); err != nil {
		panic(err)
	}
	if err := pipeline.Add(data); err != nil {
		panic(err)
	}

	res, err := pipeline.Search(make([]float32, d), 5)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Labels)
	fmt.Println(pipeline.SupportsConcurrentSearch())
	// Output:
	// [2 1 0 3 4]
	// true
}

func ExampleBadCastError() {
	rt := gofaiss.New(memfaiss.New())

	flat, err := index.NewFlatL2(rt, 8)
	if err != nil {
		panic(err)
	}
	generic := flat.Upcast()
	defer generic.Close()

	// A failed downcast leaves generic usable.
	_, err = index.IntoRefineFlat(generic)
	fmt.Println(errors.Is(err, gofaiss.ErrBadCast))

	back, err := index.IntoFlat(generic)
	if err != nil {
		panic(err)
	}
	defer back.Close()
	fmt.Println(back.D())
	// Output:
	// true
	// 8
}
