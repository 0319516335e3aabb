package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AllValid(t *testing.T) {
	out, _, err := execute(t, "validate", sourcePath("measured_a.yaml"), sourcePath("measured_b.xml"), sourcePath("real.cue"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ "+sourcePath("measured_a.yaml")+" (1 entries)")
	assert.Contains(t, out, "✓ "+sourcePath("real.cue")+" (1 entries)")
	assert.NotContains(t, out, "✗")
	assert.NotContains(t, out, "warning")
}

func TestValidate_OverlapIsWarning(t *testing.T) {
	path := writeFile(t, t.TempDir(), "overlap.yaml", `
iovs:
  - first: "1:0"
    last: "5:0"
    sensors: [{id: 1, sh_x: 0.1}]
  - first: "3:0"
    last: "8:0"
    sensors: [{id: 1, sh_x: 0.2}]
`)

	out, _, err := execute(t, "validate", "--format", "json", path)
	require.NoError(t, err)

	resp := decode[ValidationResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 1)
	assert.Equal(t, 2, resp.Data.Files[0].Entries)
	assert.Equal(t, []string{"entry 1: interval [3:0, 8:0] overlaps previous [1:0, 5:0]"}, resp.Data.Files[0].Warnings)
}

func TestValidate_OrderIndependent(t *testing.T) {
	dir := t.TempDir()
	unordered := writeFile(t, dir, "unordered.yaml", `
iovs:
  - first: "10:0"
    last: "12:0"
    sensors: [{id: 1, sh_x: 0.1}]
  - first: "1:0"
    last: "5:0"
    sensors: [{id: 1, sh_x: 0.2}]
`)
	overlapping := writeFile(t, dir, "overlapping.yaml", `
iovs:
  - first: "3:0"
    last: "8:0"
    sensors: [{id: 1, sh_x: 0.2}]
  - first: "20:0"
    last: "21:0"
    sensors: [{id: 1, sh_x: 0.3}]
  - first: "1:0"
    last: "5:0"
    sensors: [{id: 1, sh_x: 0.1}]
`)

	out, _, err := execute(t, "validate", "--format", "json", unordered, overlapping)
	require.NoError(t, err)

	files := decode[ValidationResult](t, out).Data.Files
	require.Len(t, files, 2)
	assert.Empty(t, files[0].Warnings)
	assert.Equal(t, []string{"entry 1: interval [3:0, 8:0] overlaps previous [1:0, 5:0]"}, files[1].Warnings)
}

func TestValidate_InvalidFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.xml")

	out, _, err := execute(t, "validate", "--format", "json",
		sourcePath("measured_a.yaml"), sourcePath("reversed.yaml"), missing)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode[ValidationResult](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
	assert.Equal(t, "2 of 3 file(s) invalid", resp.Error.Message)

	files := resp.Data.Files
	require.Len(t, files, 3)
	assert.True(t, files[0].Valid)
	assert.False(t, files[1].Valid)
	assert.Equal(t, "E006", files[1].Code)
	assert.False(t, files[2].Valid)
	assert.Equal(t, "E002", files[2].Code)
	assert.Equal(t, "file not found", files[2].Message)
}

func TestValidate_CUESyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.cue", "iovs: [\n  {first: \"1:0\", last: \"2:0\",\n")

	out, _, err := execute(t, "validate", path)
	require.Error(t, err)

	assert.Contains(t, out, "✗ "+path)
	assert.Contains(t, out, "[E004]")
	assert.Contains(t, out, "Error [E_INVALID]: 1 of 1 file(s) invalid")
}

func TestValidate_RequiresArgs(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
