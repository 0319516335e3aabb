package engine

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/aligniov/internal/ir"
)

// MergeOption configures Merge.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for sweep tracing.
// Each emitted interval is logged at debug level.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) MergeOption {
	return func(c *mergeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// boundary holds the arena indices that start and stop at one time point.
type boundary struct {
	activate   []int
	deactivate []int
}

// Merge combines raw sequences into one non-overlapping sequence.
//
// Every input entry contributes an activate boundary at its First and a
// deactivate boundary one lumi block past its Last. Boundaries are swept in
// time order; between two consecutive boundaries the output carries the sum
// of every entry active there. Spans where nothing is active get an identity
// entry, so the output is contiguous from the earliest First up to the last
// boundary.
//
// At a single boundary all activations are applied before all
// deactivations. An entry whose activate and deactivate fall on the same
// point (only [max, max]) is therefore never active.
//
// Inputs are not modified and the output shares no maps with them. Zero
// entries in total produce an empty sequence.
func Merge(seqs []ir.Sequence, opts ...MergeOption) ir.Sequence {
	cfg := mergeConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	// The arena gives every input entry its own identity. Boundaries refer
	// to values by index, never by pointer.
	var arena []ir.Corrections
	bounds := make(map[ir.TimePoint]*boundary)
	at := func(t ir.TimePoint) *boundary {
		b, ok := bounds[t]
		if !ok {
			b = &boundary{}
			bounds[t] = b
		}
		return b
	}

	for _, seq := range seqs {
		for _, e := range seq {
			idx := len(arena)
			arena = append(arena, e.Corrections)

			at(e.Interval.First).activate = append(at(e.Interval.First).activate, idx)
			after := ir.Successor(e.Interval.Last)
			at(after).deactivate = append(at(after).deactivate, idx)
		}
	}

	if len(bounds) == 0 {
		return ir.Sequence{}
	}

	keys := slices.SortedFunc(maps.Keys(bounds), ir.Compare)

	// active is kept sorted so sums are always built in arena order.
	var active []int
	result := make(ir.Sequence, 0, len(keys)-1)

	for i, key := range keys {
		b := bounds[key]
		for _, idx := range b.activate {
			active = insertIndex(active, idx)
		}
		for _, idx := range b.deactivate {
			active = removeIndex(active, idx)
		}

		if i+1 == len(keys) {
			break
		}

		iv := ir.Interval{First: key, Last: ir.Predecessor(keys[i+1])}

		var sum ir.Corrections
		for _, idx := range active {
			sum.Combine(arena[idx])
		}

		cfg.logger.Debug("merged interval",
			"first", iv.First.String(),
			"last", iv.Last.String(),
			"blocks", len(active),
		)

		result = append(result, ir.Entry{Interval: iv, Corrections: sum})
	}

	return result
}

func insertIndex(set []int, idx int) []int {
	pos, found := slices.BinarySearch(set, idx)
	if found {
		return set
	}
	return slices.Insert(set, pos, idx)
}

func removeIndex(set []int, idx int) []int {
	pos, found := slices.BinarySearch(set, idx)
	if !found {
		return set
	}
	return slices.Delete(set, pos, pos+1)
}
