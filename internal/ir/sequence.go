package ir

import (
	"fmt"
	"slices"
)

// Entry pairs a validity interval with the corrections valid over it.
type Entry struct {
	Interval    Interval    `json:"interval"`
	Corrections Corrections `json:"corrections"`
}

// Sequence is an ordered list of entries.
//
// Loader output may be unordered and may overlap. Merge output is ordered by
// First with no overlaps and is read-only from then on.
type Sequence []Entry

// Sort orders entries by First, then Last. Stable, so ties keep input order.
func (s Sequence) Sort() {
	slices.SortStableFunc(s, func(a, b Entry) int {
		if c := Compare(a.Interval.First, b.Interval.First); c != 0 {
			return c
		}
		return Compare(a.Interval.Last, b.Interval.Last)
	})
}

// Span returns the interval from the earliest First to the latest Last.
// ok is false for an empty sequence.
func (s Sequence) Span() (span Interval, ok bool) {
	if len(s) == 0 {
		return Interval{}, false
	}
	span = s[0].Interval
	for _, e := range s[1:] {
		if e.Interval.First.Before(span.First) {
			span.First = e.Interval.First
		}
		if e.Interval.Last.After(span.Last) {
			span.Last = e.Interval.Last
		}
	}
	return span, true
}

// SequenceIssue describes one structural problem found by Validate.
type SequenceIssue struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

func (i SequenceIssue) Error() string {
	return fmt.Sprintf("entry %d: %s", i.Index, i.Message)
}

// Validate checks entry ordering and overlap.
// Returns all issues (not fail-fast). Gaps are not issues.
func (s Sequence) Validate() []SequenceIssue {
	var issues []SequenceIssue

	for i, e := range s {
		if e.Interval.First.After(e.Interval.Last) {
			issues = append(issues, SequenceIssue{
				Index:   i,
				Message: fmt.Sprintf("reversed interval %s", e.Interval),
			})
		}
		if i == 0 {
			continue
		}
		prev := s[i-1].Interval
		if e.Interval.First.Before(prev.First) {
			issues = append(issues, SequenceIssue{
				Index:   i,
				Message: fmt.Sprintf("interval %s starts before previous %s", e.Interval, prev),
			})
		}
		if e.Interval.Overlaps(prev) {
			issues = append(issues, SequenceIssue{
				Index:   i,
				Message: fmt.Sprintf("interval %s overlaps previous %s", e.Interval, prev),
			})
		}
	}

	return issues
}
