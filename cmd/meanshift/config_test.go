package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bandwidth: 1.5
quantile: 0.2
metric: dtw
algorithm: brute
workers: 3
max_iterations: 50
tolerance: 0.01
leaf_size: 8
log_level: info
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Bandwidth)
	assert.Equal(t, 1.5, *cfg.Bandwidth)
	assert.Equal(t, 0.2, *cfg.Quantile)
	assert.Equal(t, "dtw", cfg.Metric)
	assert.Equal(t, "brute", cfg.Algorithm)
	assert.Equal(t, 3, *cfg.Workers)
	assert.Equal(t, 50, *cfg.MaxIterations)
	assert.Equal(t, 0.01, *cfg.Tolerance)
	assert.Equal(t, 8, *cfg.LeafSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Bandwidth)
	assert.Empty(t, cfg.Metric)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bandwith: 2\n"), 0o644))

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{",", ',', false},
		{";", ';', false},
		{"tab", '\t', false},
		{`\t`, '\t', false},
		{"", 0, true},
		{"ab", 0, true},
		{"\"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDelimiter(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", "json")
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
