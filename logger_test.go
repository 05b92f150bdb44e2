package gofaiss

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLogger_Outcome(t *testing.T) {
	ctx := context.Background()
	l, buf := jsonLogger(slog.LevelDebug)

	l.LogCompose(ctx, "IndexPreTransform", 2, nil)
	l.LogCompose(ctx, "IndexRefineFlat", 1, errors.New("boom"))
	l.LogOperation(ctx, "add", "IndexFlat", 5, nil)

	recs := records(t, buf)
	require.Len(t, recs, 3)

	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, "compose completed", recs[0]["msg"])
	assert.Equal(t, "IndexPreTransform", recs[0]["kind"])
	assert.EqualValues(t, 2, recs[0]["children"])

	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "compose failed", recs[1]["msg"])
	assert.Equal(t, "boom", recs[1]["error"])

	assert.Equal(t, "add completed", recs[2]["msg"])
	assert.EqualValues(t, 5, recs[2]["n"])
}

func TestLogger_Levels(t *testing.T) {
	ctx := context.Background()
	l, buf := jsonLogger(slog.LevelWarn)

	l.LogCast(ctx, "Index", "IndexFlat", errors.New("mismatch"))
	l.LogFree(ctx, "IndexFlat", 0x10)
	l.LogLeak(ctx, "IndexFlat", 0x20)
	l.LogNonOwning(ctx, "IndexRefineFlat")

	recs := records(t, buf)
	require.Len(t, recs, 2, "rejected casts and frees stay at debug")
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.EqualValues(t, 0x20, recs[0]["ptr"])
	assert.Equal(t, "composite does not own its children", recs[1]["msg"])
}

func TestLogger_WithKind(t *testing.T) {
	l, buf := jsonLogger(slog.LevelInfo)
	l.WithKind("IndexFlat").Info("hello")

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "IndexFlat", recs[0]["kind"])
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	assert.NotNil(t, NewLogger(nil))
}
