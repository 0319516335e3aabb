package ir

import "fmt"

// EndOfTime is the open upper bound of a validity interval.
var EndOfTime = MaxTimePoint

// Interval is a closed range [First, Last] of time points.
// An interval whose Last is EndOfTime is open-ended.
type Interval struct {
	First TimePoint `json:"first"`
	Last  TimePoint `json:"last"`
}

// NewInterval creates an interval, rejecting First > Last.
func NewInterval(first, last TimePoint) (Interval, error) {
	if first.After(last) {
		return Interval{}, fmt.Errorf("interval first %s is after last %s", first, last)
	}
	return Interval{First: first, Last: last}, nil
}

// MustInterval is like NewInterval but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInterval(first, last TimePoint) Interval {
	iv, err := NewInterval(first, last)
	if err != nil {
		panic(err)
	}
	return iv
}

// Contains reports whether First <= t <= Last.
func (iv Interval) Contains(t TimePoint) bool {
	return Compare(iv.First, t) <= 0 && Compare(t, iv.Last) <= 0
}

// Overlaps reports whether the two intervals share at least one point.
func (iv Interval) Overlaps(o Interval) bool {
	return Compare(iv.First, o.Last) <= 0 && Compare(o.First, iv.Last) <= 0
}

// OpenEnded reports whether the interval extends to EndOfTime.
func (iv Interval) OpenEnded() bool {
	return iv.Last == EndOfTime
}

// String renders "[first, last]" with "end-of-time" for an open bound.
func (iv Interval) String() string {
	if iv.OpenEnded() {
		return fmt.Sprintf("[%s, end-of-time]", iv.First)
	}
	return fmt.Sprintf("[%s, %s]", iv.First, iv.Last)
}
