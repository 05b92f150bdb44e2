package memfaiss

import (
	"fmt"

	"github.com/hupe1980/gofaiss/native"
)

// preTransform applies a chain of transforms before delegating to sub.
// chain[0] is applied first.
type preTransform struct {
	chain  []native.Ptr
	sub    native.Ptr
	d      int
	metric native.MetricType
	own    bool
}

func (p *preTransform) dim() int                      { return p.d }
func (p *preTransform) metricType() native.MetricType { return p.metric }

func (p *preTransform) subIndex(l *Library) (index, error) {
	ix, ok := l.index(p.sub, "IndexPreTransform")
	if !ok {
		return nil, fmt.Errorf("sub-index %#x is invalid", uintptr(p.sub))
	}
	return ix, nil
}

func (p *preTransform) isTrained(l *Library) bool {
	for _, c := range p.chain {
		if t, ok := l.transform(c, "IndexIsTrained"); !ok || !t.isTrained() {
			return false
		}
	}
	sub, err := p.subIndex(l)
	return err == nil && sub.isTrained(l)
}

func (p *preTransform) count(l *Library) int64 {
	sub, err := p.subIndex(l)
	if err != nil {
		return 0
	}
	return sub.count(l)
}

// train fits each untrained stage on the output of the previous stages, then
// the sub-index on the fully transformed data.
func (p *preTransform) train(l *Library, n int, x []float32) error {
	for _, c := range p.chain {
		t, ok := l.transform(c, "IndexTrain")
		if !ok {
			return fmt.Errorf("chain holds invalid transform %#x", uintptr(c))
		}
		if !t.isTrained() {
			if err := t.train(n, x); err != nil {
				return err
			}
		}
		x = t.apply(n, x)
	}
	sub, err := p.subIndex(l)
	if err != nil {
		return err
	}
	return sub.train(l, n, x)
}

func (p *preTransform) add(l *Library, n int, x []float32) error {
	if !p.isTrained(l) {
		return errNotTrained
	}
	xt, err := applyChain(l, p.chain, n, x)
	if err != nil {
		return err
	}
	sub, err := p.subIndex(l)
	if err != nil {
		return err
	}
	return sub.add(l, n, xt)
}

func (p *preTransform) search(l *Library, n int, x []float32, k int) ([]float32, []int64, error) {
	if !p.isTrained(l) {
		return nil, nil, errNotTrained
	}
	xt, err := applyChain(l, p.chain, n, x)
	if err != nil {
		return nil, nil, err
	}
	sub, err := p.subIndex(l)
	if err != nil {
		return nil, nil, err
	}
	return sub.search(l, n, xt, k)
}

func (p *preTransform) reset(l *Library) {
	if sub, err := p.subIndex(l); err == nil {
		sub.reset(l)
	}
}

func (p *preTransform) clone(l *Library) (index, error) {
	c := &preTransform{d: p.d, metric: p.metric, own: true}
	for _, ptr := range p.chain {
		t, ok := l.transform(ptr, "CloneIndex")
		if !ok {
			c.release(l)
			return nil, fmt.Errorf("chain holds invalid transform %#x", uintptr(ptr))
		}
		c.chain = append(c.chain, l.register(t.cloneTransform()))
	}
	sub, err := p.subIndex(l)
	if err == nil {
		var subClone index
		if subClone, err = sub.clone(l); err == nil {
			c.sub = l.register(subClone)
			return c, nil
		}
	}
	c.release(l)
	return nil, err
}

func (p *preTransform) release(l *Library) {
	if !p.own {
		return
	}
	for _, c := range p.chain {
		l.free(c, "IndexPreTransform release", anyTransform)
	}
	if p.sub != 0 {
		l.free(p.sub, "IndexPreTransform release", anyIndex)
	}
}

// IndexPreTransformNewWithTransform implements native.Library. The new object
// does not own lt or sub until own_fields is set.
func (l *Library) IndexPreTransformNewWithTransform(lt, sub native.Ptr) (native.Ptr, native.Status) {
	if st, ok := l.injected("IndexPreTransformNewWithTransform"); ok {
		return 0, st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.transform(lt, "IndexPreTransformNewWithTransform")
	if !ok {
		return 0, native.StatusUnknownException
	}
	ix, ok := l.index(sub, "IndexPreTransformNewWithTransform")
	if !ok {
		return 0, native.StatusUnknownException
	}
	if t.dOut() != ix.dim() {
		return 0, l.status(fmt.Errorf("transform output dimension %d does not match index dimension %d", t.dOut(), ix.dim()))
	}
	return l.register(&preTransform{
		chain:  []native.Ptr{lt},
		sub:    sub,
		d:      t.dIn(),
		metric: ix.metricType(),
	}), native.StatusOK
}

// IndexPreTransformPrependTransform implements native.Library. On success the
// transform is owned exactly like the existing chain.
func (l *Library) IndexPreTransformPrependTransform(idx, lt native.Ptr) native.Status {
	if st, ok := l.injected("IndexPreTransformPrependTransform"); ok {
		return st
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.preTransform(idx, "IndexPreTransformPrependTransform")
	if !ok {
		return native.StatusUnknownException
	}
	t, ok := l.transform(lt, "IndexPreTransformPrependTransform")
	if !ok {
		return native.StatusUnknownException
	}
	if t.dOut() != p.d {
		return l.status(fmt.Errorf("transform output dimension %d does not match index dimension %d", t.dOut(), p.d))
	}
	p.chain = append([]native.Ptr{lt}, p.chain...)
	p.d = t.dIn()
	return native.StatusOK
}

func (l *Library) preTransform(idx native.Ptr, op string) (*preTransform, bool) {
	obj, ok := l.lookup(idx, op)
	if !ok {
		return nil, false
	}
	p, ok := obj.(*preTransform)
	if !ok {
		l.violate("%s: %#x is not an IndexPreTransform", op, uintptr(idx))
	}
	return p, ok
}

// IndexPreTransformOwnFields implements native.Library.
func (l *Library) IndexPreTransformOwnFields(idx native.Ptr) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.preTransform(idx, "IndexPreTransformOwnFields")
	return ok && p.own
}

// IndexPreTransformSetOwnFields implements native.Library.
func (l *Library) IndexPreTransformSetOwnFields(idx native.Ptr, own bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.preTransform(idx, "IndexPreTransformSetOwnFields"); ok {
		p.own = own
	}
}

// IndexPreTransformCast implements native.Library.
func (l *Library) IndexPreTransformCast(idx native.Ptr) native.Ptr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	obj, ok := l.lookup(idx, "IndexPreTransformCast")
	if !ok {
		return 0
	}
	if _, ok := obj.(*preTransform); !ok {
		return 0
	}
	return idx
}

// IndexPreTransformFree implements native.Library.
func (l *Library) IndexPreTransformFree(idx native.Ptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.free(idx, "IndexPreTransformFree", func(obj any) bool {
		_, ok := obj.(*preTransform)
		return ok
	})
}
