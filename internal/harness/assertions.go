package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/aligniov/internal/engine"
	"github.com/roach88/aligniov/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		switch event.Type {
		case EventResolve:
			fmt.Fprintf(&buf, "  [%d] %s @ %s -> %s refreshed=%t\n", i+1, event.Channel, event.At, event.Interval, event.Refreshed)
		case EventQueryError:
			fmt.Fprintf(&buf, "  [%d] %s @ %s -> error: %s\n", i+1, event.Channel, event.At, event.Error)
		case EventBuildError:
			fmt.Fprintf(&buf, "  [%d] build failed: %s\n", i+1, event.Code)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the provider after the
// queries ran. Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, p *engine.Provider) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(result.Trace, a, p); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(trace []TraceEvent, a Assertion, p *engine.Provider) error {
	ch, err := ir.ParseChannel(a.Channel)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertResolveCount:
		return assertResolveCount(trace, ch, a.Count, p)
	case AssertSequenceLength:
		return assertSequenceLength(trace, ch, a.Count, p)
	case AssertContiguous:
		return assertContiguous(trace, ch, p)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertResolveCount checks how many times the channel cache missed.
func assertResolveCount(trace []TraceEvent, ch ir.Channel, want int, p *engine.Provider) error {
	st, err := p.State(ch)
	if err != nil {
		return err
	}
	if got := st.Resolves(); got != want {
		return &AssertionError{
			Type:     AssertResolveCount,
			Expected: fmt.Sprintf("%s resolved %d times", ch, want),
			Actual:   fmt.Sprintf("%s resolved %d times", ch, got),
			Trace:    trace,
		}
	}
	return nil
}

// assertSequenceLength checks the number of merged entries of a channel.
func assertSequenceLength(trace []TraceEvent, ch ir.Channel, want int, p *engine.Provider) error {
	seq, err := p.Sequence(ch)
	if err != nil {
		return err
	}
	if len(seq) != want {
		return &AssertionError{
			Type:     AssertSequenceLength,
			Expected: fmt.Sprintf("%s has %d entries", ch, want),
			Actual:   fmt.Sprintf("%s has %d entries", ch, len(seq)),
			Trace:    trace,
		}
	}
	return nil
}

// assertContiguous checks that merged entries leave no gap and do not
// overlap.
func assertContiguous(trace []TraceEvent, ch ir.Channel, p *engine.Provider) error {
	seq, err := p.Sequence(ch)
	if err != nil {
		return err
	}
	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1].Interval, seq[i].Interval
		if want := ir.Successor(prev.Last); cur.First != want {
			return &AssertionError{
				Type:     AssertContiguous,
				Expected: fmt.Sprintf("%s entry %d starts at %s", ch, i, want),
				Actual:   fmt.Sprintf("%s entry %d is %s after %s", ch, i, cur, prev),
				Trace:    trace,
			}
		}
	}
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
