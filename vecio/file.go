package vecio

import (
	"context"
	"errors"
	"fmt"
)

// Load reads the fvecs file name from s. The compression is derived from the
// name.
func Load(ctx context.Context, s Store, name string) ([]float32, int, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	dr, err := NewReader(rc, CompressionFor(name))
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", name, err)
	}
	defer dr.Close()

	data, d, err := Read(dr)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", name, err)
	}
	return data, d, nil
}

// Save writes data as fvecs rows of dimension d to name in s. The compression
// is derived from the name.
func Save(ctx context.Context, s Store, name string, data []float32, d int) (err error) {
	wc, err := s.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		err = errors.Join(err, wc.Close())
	}()

	cw, err := NewWriter(wc, CompressionFor(name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := Write(cw, data, d); err != nil {
		_ = cw.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
