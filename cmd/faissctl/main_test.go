package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/gofaiss"
	"github.com/hupe1980/gofaiss/config"
	"github.com/hupe1980/gofaiss/internal/memfaiss"
	"github.com/hupe1980/gofaiss/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faissctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestRootCmd_Definition(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "faissctl", cmd.Use)

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"check", "inspect", "search", "generate"})

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestCheck_Mem(t *testing.T) {
	out, err := run(t, "check", "--backend", "mem", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: mem")
	assert.Contains(t, out, "ok")
}

func TestCheck_InvalidBackend(t *testing.T) {
	_, err := run(t, "check", "--backend", "gpu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestInspect(t *testing.T) {
	path := writeConfig(t, `
library:
  backend: mem
index:
  pca: 4
  refine: true
  k_factor: 3
`)
	out, err := run(t, "inspect", "-c", path, "--dim", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "IndexRefineFlat(k_factor=3, IndexPreTransform(PCAMatrix -> IndexFlat))")
	assert.Regexp(t, `dimension:\s+8`, out)
	assert.Regexp(t, `concurrent search:\s+true`, out)
	assert.Regexp(t, `owns children:\s+true`, out)

	_, err = run(t, "inspect", "-c", path)
	assert.ErrorContains(t, err, "dimension is not set")
}

func TestGenerateAndSearch(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.fvecs.zst")
	query := filepath.Join(dir, "query.fvecs.lz4")

	out, err := run(t, "generate", "--backend", "mem", "--n", "200", "--dim", "16", "--clusters", "4", "--out", base)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 200 vectors of dimension 16")

	_, err = run(t, "generate", "--backend", "mem", "--n", "10", "--dim", "16", "--seed", "9", "--out", query)
	require.NoError(t, err)

	out, err = run(t, "search", "--backend", "mem", "--log-level", "error", "--base", base, "--query", query, "-k", "5", "--recall")
	require.NoError(t, err)
	assert.Contains(t, out, "index:   IndexFlat")
	assert.Contains(t, out, "10 queries, k=5, parallel")
	assert.Contains(t, out, "recall@5: 1.0000")

	path := writeConfig(t, `
library:
  backend: mem
log:
  level: error
index:
  description: PCA8,Flat
`)
	out, err = run(t, "search", "-c", path, "--base", base, "--query", query, "-k", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "index:   Index\n")
	assert.Contains(t, out, "10 queries, k=5, batch")
}

func TestSearch_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.fvecs")
	query := filepath.Join(dir, "query.fvecs")

	_, err := run(t, "generate", "--backend", "mem", "--n", "20", "--dim", "8", "--out", base)
	require.NoError(t, err)
	_, err = run(t, "generate", "--backend", "mem", "--n", "2", "--dim", "4", "--out", query)
	require.NoError(t, err)

	_, err = run(t, "search", "--backend", "mem", "--base", base, "--query", query)
	assert.ErrorContains(t, err, "does not match base dimension")

	_, err = run(t, "search", "--backend", "mem", "--base", filepath.Join(dir, "missing.fvecs"), "--query", query)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildIndex(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Index
		concurrent bool
		want       string
	}{
		{"flat", config.Index{Metric: "L2"}, true, "IndexFlat"},
		{"pca", config.Index{Metric: "L2", PCA: 4}, true, "IndexPreTransform(PCAMatrix -> IndexFlat)"},
		{"refine", config.Index{Metric: "IP", Refine: true, KFactor: 2}, true, "IndexRefineFlat(k_factor=2, IndexFlat)"},
		{"factory", config.Index{Metric: "L2", Description: "Flat"}, false, "Index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := memfaiss.New()
			rt := gofaiss.New(lib)

			idx, err := buildIndex(rt, tt.cfg, 8)
			require.NoError(t, err)
			assert.Equal(t, tt.want, describe(idx))
			assert.Equal(t, tt.concurrent, idx.SupportsConcurrentSearch())
			assert.Equal(t, 8, idx.D())

			require.NoError(t, idx.Close())
			assert.Zero(t, lib.Live())
			assert.Empty(t, lib.Violations())
		})
	}
}

func TestBuildIndex_FailureClosesParts(t *testing.T) {
	lib := memfaiss.New()
	rt := gofaiss.New(lib)

	lib.Fail("IndexRefineFlatNew", native.StatusStdException)
	_, err := buildIndex(rt, config.Index{Metric: "L2", PCA: 4, Refine: true, KFactor: 1}, 8)
	require.Error(t, err)
	assert.Zero(t, lib.Live())

	_, err = buildIndex(rt, config.Index{Metric: "L2", PCA: 16}, 8)
	assert.ErrorContains(t, err, "exceeds dimension")
	assert.Zero(t, lib.Live())
	assert.Empty(t, lib.Violations())
}

func TestSelfCheck(t *testing.T) {
	lib := memfaiss.New()
	require.NoError(t, selfCheck(gofaiss.New(lib)))
	assert.Zero(t, lib.Live())
	assert.Empty(t, lib.Violations())
}
