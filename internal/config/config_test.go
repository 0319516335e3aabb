package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligniov/internal/ir"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aligniov.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Load
// =============================================================================

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	path := writeConfig(t, `
verbosity: 2
measured_files: [a.xml, sub/b.yaml]
misaligned_files: [/abs/m.cue]
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Verbosity)
	assert.Equal(t, []string{filepath.Join(dir, "a.xml"), filepath.Join(dir, "sub/b.yaml")}, cfg.Files(ir.Measured))
	assert.Empty(t, cfg.Files(ir.Real))
	assert.Equal(t, []string{"/abs/m.cue"}, cfg.Files(ir.Misaligned))
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.True(t, cfg.IsEmpty())
	assert.Equal(t, 0, cfg.Verbosity)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "measured: [a.xml]\n", "field measured not found"},
		{"verbosity too high", "verbosity: 4\n", "verbosity must be between 0 and 3"},
		{"verbosity negative", "verbosity: -1\n", "verbosity must be between 0 and 3"},
		{"empty file entry", "real_files: [\"\"]\n", "real_files[0] must not be empty"},
		{"wrong type", "verbosity: loud\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// =============================================================================
// Channel access
// =============================================================================

func TestFiles_UnknownChannel(t *testing.T) {
	cfg := &Config{MeasuredFiles: []string{"a.xml"}}
	assert.Nil(t, cfg.Files(ir.Channel(7)))
}

func TestSetFiles(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.SetFiles(ir.Real, []string{"r.xml"}))
	assert.Equal(t, []string{"r.xml"}, cfg.Files(ir.Real))

	err := cfg.SetFiles(ir.Channel(-1), []string{"x.xml"})
	assert.ErrorIs(t, err, ir.ErrUnknownChannel)
}
