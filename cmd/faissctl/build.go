package main

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/config"
	"github.com/hupe1980/gofaiss/index"
	"github.com/hupe1980/gofaiss/transform"
)

// buildIndex composes the index described by cfg over d-dimensional inputs.
// On failure every handle built so far is closed.
func buildIndex(rt *gofaiss.Runtime, cfg config.Index, d int) (index.Index, error) {
	metric := index.MetricL2
	if cfg.InnerProduct() {
		metric = index.MetricInnerProduct
	}

	if cfg.Description != "" {
		x, err := index.Factory(rt, d, cfg.Description, metric)
		if err != nil {
			return nil, err
		}
		return x, nil
	}

	leaf, err := buildLeaf(rt, d, cfg.PCA, metric)
	if err != nil {
		return nil, err
	}
	if !cfg.Refine {
		return leaf, nil
	}

	r, err := refine(leaf)
	if err != nil {
		return nil, errors.Join(err, leaf.Close())
	}
	if err := r.SetKFactor(cfg.KFactor); err != nil {
		return nil, errors.Join(err, r.Close())
	}
	return r, nil
}

// buildLeaf returns a flat index, behind a PCA stage when pca > 0.
func buildLeaf(rt *gofaiss.Runtime, d, pca int, metric index.MetricType) (index.Index, error) {
	if pca == 0 {
		f, err := index.NewFlat(rt, d, metric)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	pt, err := buildPipeline(rt, d, pca, metric)
	if err != nil {
		return nil, err
	}
	return pt, nil
}

func buildPipeline(rt *gofaiss.Runtime, d, dOut int, metric index.MetricType) (*index.PreTransform[*index.Flat], error) {
	if dOut > d {
		return nil, fmt.Errorf("pca %d exceeds dimension %d", dOut, d)
	}
	pca, err := transform.NewPCAMatrix(rt, d, dOut, 0, false)
	if err != nil {
		return nil, err
	}
	flat, err := index.NewFlat(rt, dOut, metric)
	if err != nil {
		return nil, errors.Join(err, pca.Close())
	}
	pt, err := index.NewPreTransform(pca, flat)
	if err != nil {
		return nil, errors.Join(err, pca.Close(), flat.Close())
	}
	return pt, nil
}

// kFactorSetter is implemented by every RefineFlat instantiation.
type kFactorSetter interface {
	index.Index
	SetKFactor(float32) error
}

// refine wraps base keeping its static type, so the concurrency capability
// carries over.
func refine(base index.Index) (kFactorSetter, error) {
	var (
		r   kFactorSetter
		err error
	)
	switch b := base.(type) {
	case *index.Flat:
		r, err = index.NewRefineFlat(b)
	case *index.PreTransform[*index.Flat]:
		r, err = index.NewRefineFlat(b)
	default:
		r, err = index.NewRefineFlat(base)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// describe renders the composition of idx, innermost last.
func describe(idx index.Index) string {
	switch v := idx.(type) {
	case *index.Flat:
		return "IndexFlat"
	case *index.PreTransform[*index.Flat]:
		return "IndexPreTransform(PCAMatrix -> IndexFlat)"
	case *index.RefineFlat[*index.Flat]:
		return fmt.Sprintf("IndexRefineFlat(k_factor=%g, IndexFlat)", v.KFactor())
	case *index.RefineFlat[*index.PreTransform[*index.Flat]]:
		return fmt.Sprintf("IndexRefineFlat(k_factor=%g, IndexPreTransform(PCAMatrix -> IndexFlat))", v.KFactor())
	default:
		return idx.NativeHandle().Kind().String()
	}
}
