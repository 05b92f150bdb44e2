package vecio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxDimension bounds the per-row dimension accepted by Read.
const MaxDimension = 1 << 20

// ErrFormat is matched by every malformed-input error returned by Read.
var ErrFormat = errors.New("malformed fvecs data")

// Read decodes fvecs rows from r and returns them flattened together with
// their dimension. All rows must share one dimension. An empty input yields
// no data and d == 0.
func Read(r io.Reader) ([]float32, int, error) {
	br := bufio.NewReader(r)

	var (
		data []float32
		d    int
		row  []byte
		hdr  [4]byte
	)
	for n := 0; ; n++ {
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return data, d, nil
			}
			return nil, 0, truncated(err, n, "header")
		}

		rd := int(int32(binary.LittleEndian.Uint32(hdr[:])))
		switch {
		case rd <= 0 || rd > MaxDimension:
			return nil, 0, fmt.Errorf("%w: row %d: invalid dimension %d", ErrFormat, n, rd)
		case d == 0:
			d = rd
			row = make([]byte, 4*d)
		case rd != d:
			return nil, 0, fmt.Errorf("%w: row %d: dimension %d, want %d", ErrFormat, n, rd, d)
		}

		if _, err := io.ReadFull(br, row); err != nil {
			return nil, 0, truncated(err, n, "values")
		}
		for i := range d {
			data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(row[4*i:])))
		}
	}
}

func truncated(err error, row int, part string) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: row %d: truncated %s", ErrFormat, row, part)
	}
	return err
}

// Write encodes data as fvecs rows of dimension d.
func Write(w io.Writer, data []float32, d int) error {
	if d <= 0 || d > MaxDimension || len(data)%d != 0 {
		return fmt.Errorf("cannot write %d values as rows of dimension %d", len(data), d)
	}

	bw := bufio.NewWriter(w)
	row := make([]byte, 4+4*d)
	binary.LittleEndian.PutUint32(row, uint32(d))
	for off := 0; off < len(data); off += d {
		for i, v := range data[off : off+d] {
			binary.LittleEndian.PutUint32(row[4+4*i:], math.Float32bits(v))
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}
