package vecio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/gofaiss/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWrite(t *testing.T) {
	data, d := testutil.Reference()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, data, d))
	assert.Equal(t, 5*(4+4*d), buf.Len())
	assert.Equal(t, uint32(d), binary.LittleEndian.Uint32(buf.Bytes()))

	got, gotD, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, d, gotD)
	assert.Equal(t, data, got)
}

func TestRead_Empty(t *testing.T) {
	data, d, err := Read(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Zero(t, d)
}

func TestRead_Malformed(t *testing.T) {
	row := func(d int32, values ...float32) []byte {
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, d)
		_ = binary.Write(&buf, binary.LittleEndian, values)
		return buf.Bytes()
	}

	tests := []struct {
		name  string
		input []byte
	}{
		{"truncated header", []byte{2, 0}},
		{"zero dimension", row(0)},
		{"negative dimension", row(-3)},
		{"huge dimension", row(MaxDimension + 1)},
		{"truncated values", row(2, 1)},
		{"ragged rows", append(row(2, 1, 2), row(3, 1, 2, 3)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(bytes.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestWrite_Invalid(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, []float32{1, 2, 3}, 2))
	assert.Error(t, Write(&buf, []float32{1, 2}, 0))
	assert.Zero(t, buf.Len())
}

func TestCompression(t *testing.T) {
	tests := []struct {
		name string
		want Compression
	}{
		{"base.fvecs", CompressionNone},
		{"base.fvecs.gz", CompressionGzip},
		{"base.fvecs.zst", CompressionZstd},
		{"BASE.FVECS.ZSTD", CompressionZstd},
		{"s3/path/base.fvecs.lz4", CompressionLZ4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompressionFor(tt.name))
		})
	}

	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd, CompressionLZ4} {
		parsed, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
		assert.Equal(t, c, CompressionFor("x.fvecs"+c.Extension()))
	}

	_, err := ParseCompression("brotli")
	assert.Error(t, err)
	assert.Equal(t, "Compression(9)", Compression(9).String())
}

func TestCompression_RoundTrip(t *testing.T) {
	data := testutil.NewRNG(42).Uniform(100, 16)

	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, c)
			require.NoError(t, err)
			require.NoError(t, Write(w, data, 16))
			require.NoError(t, w.Close())

			r, err := NewReader(&buf, c)
			require.NoError(t, err)
			defer r.Close()

			got, d, err := Read(r)
			require.NoError(t, err)
			assert.Equal(t, 16, d)
			assert.Equal(t, data, got)
		})
	}
}

func TestLoadSave_LocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir)
	data := testutil.NewRNG(1).Uniform(20, 8)

	for _, name := range []string{"a.fvecs", "nested/b.fvecs.gz", "c.fvecs.zst", "d.fvecs.lz4"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, Save(ctx, store, name, data, 8))
			_, err := os.Stat(filepath.Join(dir, name))
			require.NoError(t, err)

			got, d, err := Load(ctx, store, name)
			require.NoError(t, err)
			assert.Equal(t, 8, d)
			assert.Equal(t, data, got)
		})
	}

	_, _, err := Load(ctx, store, "missing.fvecs")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSave_MemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data, d := testutil.Reference()

	require.NoError(t, Save(ctx, store, "ref.fvecs.zst", data, d))
	assert.Equal(t, []string{"ref.fvecs.zst"}, store.Names())

	got, gotD, err := Load(ctx, store, "ref.fvecs.zst")
	require.NoError(t, err)
	assert.Equal(t, d, gotD)
	assert.Equal(t, data, got)

	assert.Error(t, Save(ctx, store, "bad.fvecs", data, 3))

	// Compressed bytes under a plain name are rejected.
	raw, err := store.Open(ctx, "ref.fvecs.zst")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(raw)
	require.NoError(t, err)
	store.Put("plain.fvecs", buf.Bytes())
	_, _, err = Load(ctx, store, "plain.fvecs")
	assert.Error(t, err)
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		want    Location
		wantErr bool
	}{
		{uri: "data/base.fvecs", want: Location{Scheme: "file", Key: "data/base.fvecs"}},
		{uri: "file:///tmp/base.fvecs", want: Location{Scheme: "file", Key: "/tmp/base.fvecs"}},
		{uri: "s3://bucket/sift/base.fvecs.zst", want: Location{Scheme: "s3", Bucket: "bucket", Key: "sift/base.fvecs.zst"}},
		{uri: "s3://bucket/", wantErr: true},
		{uri: "s3:///key", wantErr: true},
		{uri: "gs://bucket/key", wantErr: true},
		{uri: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	loc, err := ParseURI("s3://bucket/a/b.fvecs")
	require.NoError(t, err)
	assert.True(t, loc.IsRemote())
	assert.Equal(t, "s3://bucket/a/b.fvecs", loc.String())
}
