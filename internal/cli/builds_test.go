package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligniov/internal/store"
)

// storeBuild runs build --db with args and returns the first channel summary.
func storeBuild(t *testing.T, db string, args ...string) ChannelSummary {
	t.Helper()
	out, _, err := execute(t, append([]string{"build", "--format", "json", "--db", db}, args...)...)
	require.NoError(t, err, "output: %s", out)
	res := decode[BuildResult](t, out).Data
	require.NotEmpty(t, res.Channels)
	return res.Channels[0]
}

func TestBuilds_ListsStoredBuilds(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	measured := storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"), "--measured", sourcePath("measured_b.xml"))
	misaligned := storeBuild(t, db, "--misaligned", sourcePath("gaps.xml"))

	out, _, err := execute(t, "builds", "--format", "json", "--db", db)
	require.NoError(t, err)

	res := decode[BuildsResult](t, out).Data
	require.Len(t, res.Builds, 2)
	assert.Empty(t, res.Deleted)

	assert.Equal(t, measured.BuildID, res.Builds[0].ID)
	assert.Equal(t, "measured", res.Builds[0].Channel)
	assert.Equal(t, measured.Digest, res.Builds[0].Digest)
	assert.Equal(t, 3, res.Builds[0].Entries)
	assert.Len(t, res.Builds[0].Sources, 2)

	assert.Equal(t, misaligned.BuildID, res.Builds[1].ID)
	assert.Equal(t, "misaligned", res.Builds[1].Channel)
	assert.Equal(t, 3, res.Builds[1].Entries)
	assert.Less(t, res.Builds[0].Seq, res.Builds[1].Seq)
}

func TestBuilds_Text(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	b := storeBuild(t, db, "--misaligned", sourcePath("gaps.xml"))

	out, _, err := execute(t, "builds", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, b.BuildID)
	assert.Contains(t, out, "misaligned")
	assert.Contains(t, out, "3 entries")
	assert.Contains(t, out, shortDigest(b.Digest))
}

func TestBuilds_EmptyStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "builds", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No builds stored.")

	out, _, err = execute(t, "builds", "--format", "json", "--db", db)
	require.NoError(t, err)
	assert.Empty(t, decode[BuildsResult](t, out).Data.Builds)
}

func TestBuilds_DeleteFallsBackToPreviousBuild(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	older := storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"))
	newer := storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"), "--measured", sourcePath("measured_b.xml"))
	require.NotEqual(t, older.Digest, newer.Digest)

	out, _, err := execute(t, "builds", "--format", "json", "--db", db, "--delete", newer.BuildID)
	require.NoError(t, err)
	res := decode[BuildsResult](t, out).Data
	assert.Equal(t, newer.BuildID, res.Deleted)
	require.Len(t, res.Builds, 1)
	assert.Equal(t, older.BuildID, res.Builds[0].ID)

	out, _, err = execute(t, "dump", "--format", "json", "--db", db, "--channel", "measured")
	require.NoError(t, err)
	assert.Equal(t, older.Digest, decode[DumpResult](t, out).Data.Digest)
}

func TestBuilds_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	storeBuild(t, db, "--misaligned", sourcePath("gaps.xml"))

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing database", []string{"--db", filepath.Join(t.TempDir(), "none.db")}, ErrCodeStore},
		{"unknown build", []string{"--db", db, "--delete", "no-such-build"}, ErrCodeNoBuild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"builds", "--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decode[BuildsResult](t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestBuilds_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "builds")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestDump_StoredBuildByID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	older := storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"))
	storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"), "--measured", sourcePath("measured_b.xml"))

	out, _, err := execute(t, "dump", "--format", "json", "--db", db, "--build", older.BuildID)
	require.NoError(t, err)

	res := decode[DumpResult](t, out).Data
	assert.Equal(t, "measured", res.Channel)
	assert.Equal(t, older.Digest, res.Digest)
	assert.Len(t, res.Entries, older.Entries)
}

func TestDump_BuildFlagErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	storeBuild(t, db, "--misaligned", sourcePath("gaps.xml"))

	t.Run("requires db", func(t *testing.T) {
		out, _, err := execute(t, "dump", "--format", "json", "--build", "x", "--misaligned", sourcePath("gaps.xml"))
		require.Error(t, err)
		assert.Equal(t, ErrCodeConfig, decode[DumpResult](t, out).Error.Code)
	})

	t.Run("unknown build", func(t *testing.T) {
		out, _, err := execute(t, "dump", "--format", "json", "--db", db, "--build", "no-such-build")
		require.Error(t, err)
		assert.Equal(t, ErrCodeNoBuild, decode[DumpResult](t, out).Error.Code)
	})

	t.Run("channel and build exclusive", func(t *testing.T) {
		_, _, err := execute(t, "dump", "--db", db, "--build", "x", "--channel", "misaligned")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "none of the others can be")
	})

	t.Run("one of channel or build", func(t *testing.T) {
		_, _, err := execute(t, "dump", "--db", db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one of the flags")
	})
}

func TestBuild_RevertedSourcesServedFromDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "builds.db")
	a := storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"))
	storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"), "--measured", sourcePath("measured_b.xml"))
	reverted := storeBuild(t, db, "--measured", sourcePath("measured_a.yaml"))

	assert.Equal(t, "existing", reverted.Stored)
	assert.Equal(t, a.BuildID, reverted.BuildID)

	out, _, err := execute(t, "dump", "--format", "json", "--db", db, "--channel", "measured")
	require.NoError(t, err)
	assert.Equal(t, a.Digest, decode[DumpResult](t, out).Data.Digest)
}
