package engine

import "github.com/roach88/aligniov/internal/ir"

// Resolve finds the corrections valid at q.
//
// If an entry contains q, its interval and a copy of its corrections are
// returned; the first containing entry in sequence order wins. Otherwise q
// lies in a gap and the result is the identity over the whole gap: from one
// lumi block after the latest entry ending before q (or MinTimePoint) up to
// one lumi block before the earliest entry starting after q (or EndOfTime).
// Either way the returned interval can start before q; it is the full range
// over which the result holds, not [q, end].
//
// seq must not contain overlapping entries. Merge output satisfies this;
// raw loader output may not, and Resolve does not check.
func Resolve(seq ir.Sequence, q ir.TimePoint) (ir.Interval, ir.Corrections) {
	var prevLast, nextFirst ir.TimePoint
	var havePrev, haveNext bool

	for _, e := range seq {
		if e.Interval.Contains(q) {
			return e.Interval, e.Corrections.Clone()
		}

		if e.Interval.First.After(q) {
			if !haveNext || e.Interval.First.Before(nextFirst) {
				nextFirst = e.Interval.First
				haveNext = true
			}
			continue
		}

		// Neither containing nor in the future: the entry ends before q.
		if !havePrev || e.Interval.Last.After(prevLast) {
			prevLast = e.Interval.Last
			havePrev = true
		}
	}

	gap := ir.Interval{First: ir.MinTimePoint, Last: ir.EndOfTime}
	if havePrev {
		gap.First = ir.Successor(prevLast)
	}
	if haveNext {
		gap.Last = ir.Predecessor(nextFirst)
	}
	return gap, ir.Corrections{}
}
