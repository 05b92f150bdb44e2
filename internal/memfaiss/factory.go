package memfaiss

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/gofaiss/native"
)

// IndexFactory implements native.Library for the descriptions
// "Flat", "PCA<n>,Flat" and either of them followed by ",RFlat".
// Composites built here own their children.
func (l *Library) IndexFactory(d int, description string, metric native.MetricType) (native.Ptr, native.Status) {
	if st, ok := l.injected("IndexFactory"); ok {
		return 0, st
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.build(d, description, metric)
	if err != nil {
		return 0, l.status(fmt.Errorf("could not parse index string %q: %w", description, err))
	}
	return p, native.StatusOK
}

func (l *Library) build(d int, description string, metric native.MetricType) (native.Ptr, error) {
	parts := strings.Split(strings.ReplaceAll(description, " ", ""), ",")

	refine := false
	if len(parts) > 1 && parts[len(parts)-1] == "RFlat" {
		refine = true
		parts = parts[:len(parts)-1]
	}

	var pca *pcaMatrix
	if len(parts) == 2 {
		if !strings.HasPrefix(parts[0], "PCA") {
			return 0, fmt.Errorf("unknown transform %q", parts[0])
		}
		out, err := strconv.Atoi(strings.TrimPrefix(parts[0], "PCA"))
		if err != nil || out <= 0 || out > d {
			return 0, fmt.Errorf("invalid PCA dimension %q", parts[0])
		}
		pca = &pcaMatrix{in: d, out: out}
		parts = parts[1:]
	}
	if len(parts) != 1 || parts[0] != "Flat" {
		return 0, fmt.Errorf("%w: %q", errUnsupported, description)
	}

	flatDim := d
	if pca != nil {
		flatDim = pca.out
	}
	flat, err := newFlat(flatDim, metric)
	if err != nil {
		return 0, err
	}

	top := l.register(flat)
	if pca != nil {
		top = l.register(&preTransform{
			chain:  []native.Ptr{l.register(pca)},
			sub:    top,
			d:      d,
			metric: metric,
			own:    true,
		})
	}
	if refine {
		store, _ := newFlat(d, metric)
		top = l.register(&refineFlat{base: top, refine: store, kFactor: 1, own: true})
	}
	return top, nil
}
