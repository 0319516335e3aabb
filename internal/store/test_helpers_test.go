package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mergedSequence is a small merged sequence with a gap and an open end.
func mergedSequence() ir.Sequence {
	return testutil.Seq(
		testutil.Entry("1:0", "4:max", testutil.Sensor(2014838784, 150_000)),
		testutil.Entry("5:0", "9:max", ir.Corrections{}),
		testutil.Entry("10:0", "eot", testutil.Sum(
			testutil.Sensor(2014838784, -50_000),
			testutil.Pot(3, 1_000_000),
		)),
	)
}
