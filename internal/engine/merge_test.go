package engine

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/testutil"
)

// seqOpts treats nil and empty correction maps as equal.
var seqOpts = cmp.Options{cmpopts.EquateEmpty()}

func merge(seqs ...ir.Sequence) ir.Sequence {
	return Merge(seqs, WithLogger(testutil.DiscardLogger()))
}

func assertSeq(t *testing.T, want, got ir.Sequence) {
	t.Helper()
	if diff := cmp.Diff(want, got, seqOpts); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Edge Cases
// =============================================================================

func TestMerge_NoInputs(t *testing.T) {
	assert.Empty(t, merge())
	assert.Empty(t, merge(ir.Sequence{}, nil))
}

func TestMerge_SingleEntryReproduced(t *testing.T) {
	v := testutil.Sensor(1, 100)

	got := merge(testutil.Seq(testutil.Entry("5:3", "5:3", v)))

	assertSeq(t, testutil.Seq(testutil.Entry("5:3", "5:3", v)), got)
}

func TestMerge_SingleEntryAcrossRuns(t *testing.T) {
	v := testutil.Pot(3, 7)

	got := merge(testutil.Seq(testutil.Entry("1:4", "9:max", v)))

	assertSeq(t, testutil.Seq(testutil.Entry("1:4", "9:max", v)), got)
}

func TestMerge_OpenEndedEntry(t *testing.T) {
	v := testutil.Sensor(1, 1)

	got := merge(testutil.Seq(testutil.Entry("2:0", "eot", v)))

	assertSeq(t, testutil.Seq(testutil.Entry("2:0", "eot", v)), got)
}

func TestMerge_EntryAtMaxIsNeverActive(t *testing.T) {
	got := merge(testutil.Seq(testutil.Entry("max:max", "max:max", testutil.Sensor(1, 1))))
	assert.Empty(t, got)
}

// =============================================================================
// Overlap and Gap Handling
// =============================================================================

func TestMerge_OverlapAdditivity(t *testing.T) {
	v1 := testutil.Sensor(1, 10)
	v2 := testutil.Sensor(1, 5)
	v2.SetPot(4, ir.Shift{RotX: 2})

	a := testutil.Seq(testutil.Entry("1:0", "3:0", v1))
	b := testutil.Seq(testutil.Entry("2:0", "5:0", v2))

	want := testutil.Seq(
		testutil.Entry("1:0", "1:max", v1),
		testutil.Entry("2:0", "3:0", testutil.Sum(v1, v2)),
		testutil.Entry("3:1", "5:0", v2),
	)

	assertSeq(t, want, merge(a, b))
	assertSeq(t, want, merge(b, a))
}

func TestMerge_OverlapStartingAtLast(t *testing.T) {
	v1 := testutil.Sensor(1, 10)
	v2 := testutil.Sensor(2, 20)

	got := merge(
		testutil.Seq(testutil.Entry("1:0", "3:0", v1)),
		testutil.Seq(testutil.Entry("3:0", "5:0", v2)),
	)

	assertSeq(t, testutil.Seq(
		testutil.Entry("1:0", "2:max", v1),
		testutil.Entry("3:0", "3:0", testutil.Sum(v1, v2)),
		testutil.Entry("3:1", "5:0", v2),
	), got)
}

func TestMerge_AdjacentEntriesStayApart(t *testing.T) {
	a := testutil.Sensor(1, 1)
	b := testutil.Sensor(1, 2)

	got := merge(testutil.Seq(testutil.Entry("1:0", "1:9", a), testutil.Entry("1:10", "2:0", b)))

	assertSeq(t, testutil.Seq(testutil.Entry("1:0", "1:9", a), testutil.Entry("1:10", "2:0", b)), got)
}

func TestMerge_GapBecomesIdentity(t *testing.T) {
	a := testutil.Sensor(1, 1)
	b := testutil.Sensor(1, 2)

	got := merge(testutil.Seq(testutil.Entry("1:0", "1:5", a)), testutil.Seq(testutil.Entry("3:0", "3:5", b)))

	assertSeq(t, testutil.Seq(
		testutil.Entry("1:0", "1:5", a),
		testutil.Entry("1:6", "2:max", ir.Corrections{}),
		testutil.Entry("3:0", "3:5", b),
	), got)
	assert.True(t, got[1].Corrections.IsEmpty())
}

func TestMerge_ContainedEntry(t *testing.T) {
	outer := testutil.Sensor(1, 100)
	inner := testutil.Sensor(2, 1)

	got := merge(testutil.Seq(testutil.Entry("1:0", "9:0", outer)), testutil.Seq(testutil.Entry("4:0", "5:0", inner)))

	assertSeq(t, testutil.Seq(
		testutil.Entry("1:0", "3:max", outer),
		testutil.Entry("4:0", "5:0", testutil.Sum(outer, inner)),
		testutil.Entry("5:1", "9:0", outer),
	), got)
}

func TestMerge_OpenEndedOverlap(t *testing.T) {
	a := testutil.Sensor(1, 1)
	b := testutil.Sensor(1, 2)

	got := merge(testutil.Seq(testutil.Entry("2:0", "eot", a)), testutil.Seq(testutil.Entry("4:0", "6:0", b)))

	assertSeq(t, testutil.Seq(
		testutil.Entry("2:0", "3:max", a),
		testutil.Entry("4:0", "6:0", testutil.Sum(a, b)),
		testutil.Entry("6:1", "eot", a),
	), got)
}

func TestMerge_SameValueTwiceCountsTwice(t *testing.T) {
	v := testutil.Sensor(1, 3)

	got := merge(testutil.Seq(testutil.Entry("1:0", "1:0", v)), testutil.Seq(testutil.Entry("1:0", "1:0", v)))

	assertSeq(t, testutil.Seq(testutil.Entry("1:0", "1:0", testutil.Sensor(1, 6))), got)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	v := testutil.Sensor(1, 3)
	in := testutil.Seq(testutil.Entry("1:0", "2:0", v))

	got := merge(in)
	got[0].Corrections.SetSensor(1, ir.Shift{ShX: 999})

	assert.Equal(t, int64(3), in[0].Corrections.Sensors[1].ShX)
}

func TestMerge_TracesEachInterval(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	got := Merge([]ir.Sequence{
		testutil.Seq(testutil.Entry("1:0", "3:0", testutil.Sensor(1, 1))),
		testutil.Seq(testutil.Entry("2:0", "5:0", testutil.Sensor(1, 1))),
	}, WithLogger(logger))

	require.Len(t, got, 3)
	assert.Equal(t, 3, strings.Count(buf.String(), "merged interval"))
	assert.Contains(t, buf.String(), "blocks=2")
}

// =============================================================================
// Properties
// =============================================================================

// randomInputs builds n sequences of small, possibly overlapping entries.
func randomInputs(r *rand.Rand, n int) []ir.Sequence {
	seqs := make([]ir.Sequence, n)
	for i := range seqs {
		count := 1 + r.IntN(5)
		for j := 0; j < count; j++ {
			first := ir.TimePoint{Run: uint32(r.IntN(6)), Lumi: uint32(r.IntN(4))}
			last := first
			for k := r.IntN(12); k > 0; k-- {
				last = ir.Successor(last)
			}
			if r.IntN(10) == 0 {
				last = ir.EndOfTime
			}
			var c ir.Corrections
			c.SetSensor(uint32(r.IntN(3)), ir.Shift{ShX: int64(r.IntN(1000)) - 500})
			if r.IntN(2) == 0 {
				c.SetPot(uint32(r.IntN(2)), ir.Shift{RotY: int64(r.IntN(50))})
			}
			seqs[i] = append(seqs[i], ir.Entry{Interval: ir.MustInterval(first, last), Corrections: c})
		}
	}
	return seqs
}

// bruteForce sums every input entry containing t.
func bruteForce(seqs []ir.Sequence, t ir.TimePoint) ir.Corrections {
	var sum ir.Corrections
	for _, seq := range seqs {
		for _, e := range seq {
			if e.Interval.Contains(t) {
				sum.Combine(e.Corrections)
			}
		}
	}
	return sum
}

func TestMerge_CoverageProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		inputs := randomInputs(r, 1+r.IntN(4))
		got := merge(inputs...)

		var all ir.Sequence
		for _, s := range inputs {
			all = append(all, s...)
		}
		span, ok := all.Span()
		require.True(t, ok)
		require.NotEmpty(t, got)

		assert.Empty(t, got.Validate(), "round %d: merged output must not overlap", round)
		assert.Equal(t, span.First, got[0].Interval.First, "round %d", round)
		assert.Equal(t, span.Last, got[len(got)-1].Interval.Last, "round %d", round)

		for i := 1; i < len(got); i++ {
			assert.Equal(t, ir.Successor(got[i-1].Interval.Last), got[i].Interval.First,
				"round %d: gap or overlap between entries %d and %d", round, i-1, i)
		}

		// Past the last entry the resolver supplies the tail up to end of time.
		last := got[len(got)-1].Interval.Last
		if !last.IsMax() {
			tail, value := Resolve(got, ir.Successor(last))
			assert.Equal(t, ir.MustInterval(ir.Successor(last), ir.EndOfTime), tail)
			assert.True(t, value.IsEmpty())
		}
	}
}

func TestMerge_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))

	for round := 0; round < 200; round++ {
		inputs := randomInputs(r, 1+r.IntN(4))
		got := merge(inputs...)

		for _, e := range got {
			for _, p := range []ir.TimePoint{e.Interval.First, e.Interval.Last} {
				want := bruteForce(inputs, p)
				assert.True(t, want.Equal(e.Corrections),
					"round %d: value at %s: want %v got %v", round, p, want, e.Corrections)
			}
		}
	}
}

func TestMerge_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))

	for round := 0; round < 50; round++ {
		inputs := randomInputs(r, 2+r.IntN(3))
		want, err := ir.MarshalCanonical(merge(inputs...))
		require.NoError(t, err)
		wantDigest := ir.MustSequenceDigest(merge(inputs...))

		// Same entries, different order of files and of entries within files.
		shuffled := make([]ir.Sequence, len(inputs))
		for i, s := range inputs {
			shuffled[i] = append(ir.Sequence(nil), s...)
			r.Shuffle(len(shuffled[i]), func(a, b int) {
				shuffled[i][a], shuffled[i][b] = shuffled[i][b], shuffled[i][a]
			})
		}
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := ir.MarshalCanonical(merge(shuffled...))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), "round %d", round)
		assert.Equal(t, wantDigest, ir.MustSequenceDigest(merge(shuffled...)))
	}
}
