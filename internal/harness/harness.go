package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/aligniov/internal/engine"
	"github.com/roach88/aligniov/internal/ir"
	"github.com/roach88/aligniov/internal/loader"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	provider *engine.Provider
}

// channelSources adapts scenario channel names to engine.SourceSet.
type channelSources map[ir.Channel][]string

func (s channelSources) Files(ch ir.Channel) []string { return s[ch] }

func (s *Scenario) sources() (channelSources, error) {
	out := make(channelSources, len(s.Channels))
	for name, files := range s.Channels {
		ch, err := ir.ParseChannel(name)
		if err != nil {
			return nil, err
		}
		out[ch] = files
	}
	return out, nil
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load and merge every channel's sources into a fresh Provider
// 2. Issue queries in order, recording each outcome in the trace
// 3. Check expectations and evaluate assertions
//
// Expectation and assertion failures are reported in the Result. An error
// is returned only when the scenario could not be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	sources, err := scenario.sources()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()

	p, err := engine.Build(ctx, loader.New(loader.WithLogger(logger)), sources, engine.WithProviderLogger(logger))
	if scenario.BuildError != "" {
		return checkBuildError(scenario.BuildError, err, result), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build provider: %w", err)
	}

	h := &Harness{provider: p}
	h.executeQueries(scenario.Queries, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, p) {
		result.AddError(msg)
	}

	return result, nil
}

func checkBuildError(want string, err error, result *Result) *Result {
	if err == nil {
		result.AddError(fmt.Sprintf("build: expected error %s, build succeeded", want))
		return result
	}

	code := loader.Code(err)
	if code == "" {
		code = "NONE"
	}
	result.AddBuildErrorTrace(code)
	if code != want {
		result.AddError(fmt.Sprintf("build: expected error %s, got %s (%v)", want, code, err))
	}
	return result
}

// executeQueries runs every query in order through the provider caches.
func (h *Harness) executeQueries(queries []Query, result *Result) {
	for i, q := range queries {
		at, err := ir.ParseTimePoint(q.At)
		if err != nil {
			// validateScenario rejects these; Run may be handed a hand-built Scenario.
			result.AddError(fmt.Sprintf("queries[%d]: %v", i, err))
			continue
		}

		ch, err := ir.ParseChannel(q.Channel)
		var res engine.Resolution
		if err == nil {
			res, err = h.provider.Query(ch, at)
		}
		if err != nil {
			result.AddQueryErrorTrace(q.Channel, at, err)
			h.checkQueryError(i, q, err, result)
			continue
		}

		result.AddResolveTrace(ch, at, res.Interval, res.Corrections, res.Refreshed)
		if q.Expect != nil {
			for _, msg := range checkExpect(i, q.Expect, res) {
				result.AddError(msg)
			}
		}
	}
}

func (h *Harness) checkQueryError(index int, q Query, err error, result *Result) {
	if q.Expect == nil || q.Expect.Error == "" {
		result.AddError(fmt.Sprintf("queries[%d]: unexpected error: %v", index, err))
		return
	}
	if !containsFold(err.Error(), q.Expect.Error) {
		result.AddError(fmt.Sprintf("queries[%d]: error %q does not contain %q", index, err.Error(), q.Expect.Error))
	}
}

// checkExpect compares one resolution against its expectation.
func checkExpect(index int, want *Expect, got engine.Resolution) []string {
	var msgs []string
	fail := func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf("queries[%d]: ", index)+fmt.Sprintf(format, args...))
	}

	if want.Error != "" {
		fail("expected error containing %q, got %s", want.Error, got.Interval)
	}
	if want.First != "" {
		if first := ir.MustParseTimePoint(want.First); first != got.Interval.First {
			fail("interval first = %s, want %s", got.Interval.First, first)
		}
	}
	if want.Last != "" {
		last := ir.EndOfTime
		if want.Last != "eot" {
			last = ir.MustParseTimePoint(want.Last)
		}
		if last != got.Interval.Last {
			fail("interval last = %s, want %s", got.Interval.Last, last)
		}
	}
	if want.Empty != nil && *want.Empty != got.Corrections.IsEmpty() {
		fail("empty = %t, want %t", got.Corrections.IsEmpty(), *want.Empty)
	}
	if want.Refreshed != nil && *want.Refreshed != got.Refreshed {
		fail("refreshed = %t, want %t", got.Refreshed, *want.Refreshed)
	}
	if want.Sensors != nil {
		if msg := diffShifts("sensors", want.Sensors, got.Corrections.Sensors); msg != "" {
			fail("%s", msg)
		}
	}
	if want.Pots != nil {
		if msg := diffShifts("pots", want.Pots, got.Corrections.Pots); msg != "" {
			fail("%s", msg)
		}
	}

	return msgs
}

func diffShifts(kind string, want map[uint32]ExpectShift, got map[uint32]ir.Shift) string {
	if len(want) != len(got) {
		return fmt.Sprintf("%s: %d elements, want %d", kind, len(got), len(want))
	}
	for id, w := range want {
		g, ok := got[id]
		if !ok {
			return fmt.Sprintf("%s: element %d missing", kind, id)
		}
		if g != w.shift() {
			return fmt.Sprintf("%s: element %d = %+v, want %+v", kind, id, g, w.shift())
		}
	}
	return ""
}
