package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/testutil"
)

func TestResolve_Exhaustive(t *testing.T) {
	vA := testutil.Sensor(1, 10)
	vB := testutil.Sensor(1, 20)
	seq := testutil.Seq(
		testutil.Entry("0:0", "0:10", vA),
		testutil.Entry("0:20", "0:30", vB),
	)

	tests := []struct {
		name     string
		at       string
		interval ir.Interval
		value    ir.Corrections
	}{
		{"inside first", "0:5", testutil.IV("0:0", "0:10"), vA},
		{"first bound", "0:0", testutil.IV("0:0", "0:10"), vA},
		{"last bound", "0:10", testutil.IV("0:0", "0:10"), vA},
		{"gap middle", "0:15", testutil.IV("0:11", "0:19"), ir.Corrections{}},
		{"gap start", "0:11", testutil.IV("0:11", "0:19"), ir.Corrections{}},
		{"gap end", "0:19", testutil.IV("0:11", "0:19"), ir.Corrections{}},
		{"inside second", "0:25", testutil.IV("0:20", "0:30"), vB},
		{"after all", "0:35", testutil.IV("0:31", "eot"), ir.Corrections{}},
		{"far future", "900:1", testutil.IV("0:31", "eot"), ir.Corrections{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, value := Resolve(seq, testutil.TP(tt.at))
			assert.Equal(t, tt.interval, iv)
			assert.True(t, tt.value.Equal(value), "want %v got %v", tt.value, value)
		})
	}
}

func TestResolve_IntervalMayStartBeforeQuery(t *testing.T) {
	seq := testutil.Seq(
		testutil.Entry("0:0", "0:10", testutil.Sensor(1, 1)),
		testutil.Entry("0:20", "0:30", testutil.Sensor(1, 2)),
	)

	for _, at := range []string{"0:7", "0:15", "0:40"} {
		q := testutil.TP(at)
		iv, _ := Resolve(seq, q)
		assert.True(t, iv.First.Before(q), "%s: got %s", at, iv)
		assert.True(t, iv.Contains(q), "%s: got %s", at, iv)
	}
}

func TestResolve_BeforeFirstEntry(t *testing.T) {
	seq := testutil.Seq(testutil.Entry("3:5", "4:0", testutil.Sensor(1, 1)))

	iv, value := Resolve(seq, testutil.TP("1:7"))

	assert.Equal(t, testutil.IV("0:0", "3:4"), iv)
	assert.True(t, value.IsEmpty())
}

func TestResolve_GapAcrossRuns(t *testing.T) {
	seq := testutil.Seq(
		testutil.Entry("1:0", "1:max", testutil.Sensor(1, 1)),
		testutil.Entry("3:0", "eot", testutil.Sensor(1, 2)),
	)

	iv, value := Resolve(seq, testutil.TP("2:7"))

	assert.Equal(t, testutil.IV("2:0", "2:max"), iv)
	assert.True(t, value.IsEmpty())
}

func TestResolve_EmptySequence(t *testing.T) {
	iv, value := Resolve(nil, testutil.TP("5:5"))

	assert.Equal(t, ir.MustInterval(ir.MinTimePoint, ir.EndOfTime), iv)
	assert.True(t, value.IsEmpty())
}

func TestResolve_OpenEndedEntry(t *testing.T) {
	v := testutil.Pot(2, 9)
	seq := testutil.Seq(testutil.Entry("7:0", "eot", v))

	iv, value := Resolve(seq, ir.MaxTimePoint)

	assert.Equal(t, testutil.IV("7:0", "eot"), iv)
	assert.True(t, v.Equal(value))
}

func TestResolve_UnorderedInput(t *testing.T) {
	seq := testutil.Seq(
		testutil.Entry("8:0", "9:0", testutil.Sensor(1, 1)),
		testutil.Entry("1:0", "2:0", testutil.Sensor(1, 2)),
		testutil.Entry("5:0", "6:0", testutil.Sensor(1, 3)),
	)

	iv, _ := Resolve(seq, testutil.TP("3:0"))

	assert.Equal(t, testutil.IV("2:1", "4:max"), iv)
}

func TestResolve_FirstMatchWins(t *testing.T) {
	a := testutil.Sensor(1, 1)
	b := testutil.Sensor(1, 2)
	raw := testutil.Seq(
		testutil.Entry("1:0", "5:0", a),
		testutil.Entry("2:0", "3:0", b),
	)

	_, value := Resolve(raw, testutil.TP("2:5"))

	assert.True(t, a.Equal(value))
}

func TestResolve_ReturnsCopy(t *testing.T) {
	seq := testutil.Seq(testutil.Entry("1:0", "2:0", testutil.Sensor(1, 1)))

	_, value := Resolve(seq, testutil.TP("1:5"))
	value.SetSensor(1, ir.Shift{ShX: 42})

	assert.Equal(t, int64(1), seq[0].Corrections.Sensors[1].ShX)
}

func TestResolve_MergedSequenceHasNoGaps(t *testing.T) {
	merged := merge(
		testutil.Seq(testutil.Entry("1:0", "1:5", testutil.Sensor(1, 1))),
		testutil.Seq(testutil.Entry("3:0", "3:5", testutil.Sensor(1, 2))),
	)

	// Merge already materialised the gap; Resolve returns that entry.
	iv, value := Resolve(merged, testutil.TP("2:0"))

	assert.Equal(t, testutil.IV("1:6", "2:max"), iv)
	assert.True(t, value.IsEmpty())
}
