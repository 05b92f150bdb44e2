package memfaiss

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/gofaiss/native"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// transform is the behaviour shared by vector transforms in the table.
type transform interface {
	dIn() int
	dOut() int
	isTrained() bool
	train(n int, x []float32) error
	apply(n int, x []float32) []float32
	cloneTransform() transform
}

// pcaMatrix projects centered input onto the leading principal components:
// y = A (x - mean), with A holding dOut rows of dIn values.
type pcaMatrix struct {
	in, out    int
	eigenPower float32
	trained    bool
	mean       []float64
	proj       []float64
}

func (p *pcaMatrix) dIn() int        { return p.in }
func (p *pcaMatrix) dOut() int       { return p.out }
func (p *pcaMatrix) isTrained() bool { return p.trained }

func (p *pcaMatrix) train(n int, x []float32) error {
	if n < 2 {
		return errors.New("PCA training needs at least 2 points")
	}

	a := mat.NewDense(n, p.in, nil)
	mean := make([]float64, p.in)
	for i := range n {
		for j := range p.in {
			v := float64(x[i*p.in+j])
			a.Set(i, j, v)
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	var pc stat.PC
	if !pc.PrincipalComponents(a, nil) {
		return errors.New("PCA decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	if _, c := vecs.Dims(); c < p.out {
		return fmt.Errorf("PCA to %d dimensions needs at least %d training points", p.out, p.out)
	}
	vars := pc.VarsTo(nil)

	proj := make([]float64, p.out*p.in)
	for i := range p.out {
		scale := 1.0
		if p.eigenPower != 0 {
			scale = math.Pow(vars[i], float64(p.eigenPower))
		}
		for j := range p.in {
			proj[i*p.in+j] = vecs.At(j, i) * scale
		}
	}

	p.mean = mean
	p.proj = proj
	p.trained = true
	return nil
}

func (p *pcaMatrix) apply(n int, x []float32) []float32 {
	out := make([]float32, n*p.out)
	centered := make([]float64, p.in)
	for v := range n {
		for j := range p.in {
			centered[j] = float64(x[v*p.in+j]) - p.mean[j]
		}
		for i := range p.out {
			row := p.proj[i*p.in : (i+1)*p.in]
			var s float64
			for j, c := range centered {
				s += row[j] * c
			}
			out[v*p.out+i] = float32(s)
		}
	}
	return out
}

func (p *pcaMatrix) cloneTransform() transform {
	c := *p
	c.mean = slices.Clone(p.mean)
	c.proj = slices.Clone(p.proj)
	return &c
}

// PCAMatrixNew implements native.Library. Random rotation is not available.
func (l *Library) PCAMatrixNew(dIn, dOut int, eigenPower float32, randomRotation bool) (native.Ptr, native.Status) {
	if st, ok := l.injected("PCAMatrixNew"); ok {
		return 0, st
	}
	if randomRotation {
		return 0, l.status(fmt.Errorf("random rotation: %w", errUnsupported))
	}
	if dIn <= 0 || dOut <= 0 || dOut > dIn {
		return 0, l.status(fmt.Errorf("%w: PCA %d -> %d", errBadDimension, dIn, dOut))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.register(&pcaMatrix{in: dIn, out: dOut, eigenPower: eigenPower}), native.StatusOK
}

// applyChain runs x through transforms in order.
func applyChain(l *Library, chain []native.Ptr, n int, x []float32) ([]float32, error) {
	for _, p := range chain {
		t, ok := l.transform(p, "apply chain")
		if !ok {
			return nil, fmt.Errorf("chain holds invalid transform %#x", uintptr(p))
		}
		if !t.isTrained() {
			return nil, errNotTrained
		}
		x = t.apply(n, x)
	}
	return x, nil
}
