package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/store"
)

func TestBuild_TextSummary(t *testing.T) {
	out, _, err := execute(t, "build",
		"--measured", sourcePath("measured_a.yaml"),
		"--measured", sourcePath("measured_b.xml"),
		"--real", sourcePath("real.cue"),
	)
	require.NoError(t, err)

	assert.Contains(t, out, "measured")
	assert.Contains(t, out, "3 entries  [1:0, 9:max]")
	assert.Contains(t, out, "1 entries  [0:0, end-of-time]")
	assert.Contains(t, out, "(2 sources)")
	assert.NotContains(t, out, "misaligned", "channels without sources are not listed")
}

func TestBuild_JSONDigestIgnoresFileOrder(t *testing.T) {
	run := func(first, second string) ChannelSummary {
		out, _, err := execute(t, "build", "--format", "json",
			"--measured", sourcePath(first),
			"--measured", sourcePath(second),
		)
		require.NoError(t, err)

		resp := decode[BuildResult](t, out)
		assert.Equal(t, "ok", resp.Status)
		require.Len(t, resp.Data.Channels, 1)
		return resp.Data.Channels[0]
	}

	ab := run("measured_a.yaml", "measured_b.xml")
	ba := run("measured_b.xml", "measured_a.yaml")

	assert.Equal(t, "measured", ab.Channel)
	assert.Equal(t, 3, ab.Entries)
	assert.Len(t, ab.Digest, 64)
	assert.Equal(t, ab.Digest, ba.Digest)
	assert.Empty(t, ab.BuildID)
}

func TestBuild_StoresInDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	args := []string{"build", "--format", "json", "--db", db,
		"--measured", sourcePath("measured_a.yaml"),
		"--measured", sourcePath("measured_b.xml"),
	}

	out, _, err := execute(t, args...)
	require.NoError(t, err)
	first := decode[BuildResult](t, out).Data.Channels[0]
	assert.Equal(t, "new", first.Stored)
	assert.NotEmpty(t, first.BuildID)

	out, _, err = execute(t, args...)
	require.NoError(t, err)
	second := decode[BuildResult](t, out).Data.Channels[0]
	assert.Equal(t, "existing", second.Stored)
	assert.Equal(t, first.BuildID, second.BuildID)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	b, seq, err := st.ReadLatest(context.Background(), ir.Measured)
	require.NoError(t, err)
	assert.Equal(t, first.BuildID, b.ID)
	assert.Equal(t, first.Digest, b.Digest)
	assert.Len(t, seq, 3)
}

func TestBuild_ConfigWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "aligniov.yaml", fmt.Sprintf(
		"measured_files: [%q]\nmisaligned_files: [%q]\n",
		sourcePath("measured_a.yaml"), sourcePath("gaps.xml"),
	))

	out, _, err := execute(t, "build", "--format", "json", "--config", cfg,
		"--measured", sourcePath("measured_b.xml"))
	require.NoError(t, err)

	chans := decode[BuildResult](t, out).Data.Channels
	require.Len(t, chans, 2)
	assert.Equal(t, "measured", chans[0].Channel)
	assert.Equal(t, []string{sourcePath("measured_b.xml")}, chans[0].Sources)
	assert.Equal(t, "misaligned", chans[1].Channel)
	assert.Equal(t, 3, chans[1].Entries)
}

func TestBuild_Errors(t *testing.T) {
	dir := t.TempDir()
	badCfg := writeFile(t, dir, "bad.yaml", "verbosity: 9\n")

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{
			name:     "no sources",
			args:     []string{"build"},
			wantExit: ExitCommandError,
			wantCode: ErrCodeNoSources,
		},
		{
			name:     "invalid config",
			args:     []string{"build", "--config", badCfg},
			wantExit: ExitCommandError,
			wantCode: ErrCodeConfig,
		},
		{
			name:     "missing config",
			args:     []string{"build", "--config", filepath.Join(dir, "nope.yaml")},
			wantExit: ExitCommandError,
			wantCode: ErrCodeConfig,
		},
		{
			name:     "reversed interval",
			args:     []string{"build", "--measured", sourcePath("reversed.yaml")},
			wantExit: ExitFailure,
			wantCode: "E006",
		},
		{
			name:     "missing source",
			args:     []string{"build", "--real", filepath.Join(dir, "missing.xml")},
			wantExit: ExitFailure,
			wantCode: "E002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decode[any](t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestBuild_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, "build", "extra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
