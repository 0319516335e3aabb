package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Counter limits. Both counters are 32-bit unsigned.
const (
	MaxRun  uint32 = math.MaxUint32
	MaxLumi uint32 = math.MaxUint32
)

// TimePoint identifies a luminosity block within a run.
// Ordered by Run first, then Lumi. Encodes as text ("run:lumi").
type TimePoint struct {
	Run  uint32
	Lumi uint32
}

var (
	// MinTimePoint is the first representable point.
	MinTimePoint = TimePoint{Run: 0, Lumi: 0}

	// MaxTimePoint is the last representable point. It absorbs Successor.
	MaxTimePoint = TimePoint{Run: MaxRun, Lumi: MaxLumi}
)

// Compare returns -1, 0 or +1 comparing a to b.
func Compare(a, b TimePoint) int {
	switch {
	case a.Run < b.Run:
		return -1
	case a.Run > b.Run:
		return 1
	case a.Lumi < b.Lumi:
		return -1
	case a.Lumi > b.Lumi:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is strictly before o.
func (t TimePoint) Before(o TimePoint) bool { return Compare(t, o) < 0 }

// After reports whether t is strictly after o.
func (t TimePoint) After(o TimePoint) bool { return Compare(t, o) > 0 }

// IsMax reports whether t is MaxTimePoint.
func (t TimePoint) IsMax() bool { return t == MaxTimePoint }

// Predecessor returns the luminosity block before t.
//
// MaxTimePoint maps to itself so that an interval closed at the end of time
// stays closed there after a Successor/Predecessor round trip. MinTimePoint
// also maps to itself instead of wrapping around.
func Predecessor(t TimePoint) TimePoint {
	if t.IsMax() || t == MinTimePoint {
		return t
	}
	if t.Lumi == 0 {
		return TimePoint{Run: t.Run - 1, Lumi: MaxLumi}
	}
	return TimePoint{Run: t.Run, Lumi: t.Lumi - 1}
}

// Successor returns the luminosity block after t, saturating at MaxTimePoint.
func Successor(t TimePoint) TimePoint {
	if t.Lumi == MaxLumi {
		if t.Run == MaxRun {
			return t
		}
		return TimePoint{Run: t.Run + 1, Lumi: 0}
	}
	return TimePoint{Run: t.Run, Lumi: t.Lumi + 1}
}

// String renders "run:lumi", using "max" for a saturated counter.
func (t TimePoint) String() string {
	return formatCounter(t.Run, MaxRun) + ":" + formatCounter(t.Lumi, MaxLumi)
}

func formatCounter(v, limit uint32) string {
	if v == limit {
		return "max"
	}
	return strconv.FormatUint(uint64(v), 10)
}

// ParseTimePoint parses "run:lumi". Either counter may be "max".
// A bare "run" means the first lumi of that run.
func ParseTimePoint(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimePoint{}, fmt.Errorf("empty time point")
	}

	runPart, lumiPart, hasLumi := strings.Cut(s, ":")
	run, err := parseCounter(runPart, MaxRun)
	if err != nil {
		return TimePoint{}, fmt.Errorf("time point %q: run: %w", s, err)
	}

	var lumi uint32
	if hasLumi {
		lumi, err = parseCounter(lumiPart, MaxLumi)
		if err != nil {
			return TimePoint{}, fmt.Errorf("time point %q: lumi: %w", s, err)
		}
	}

	return TimePoint{Run: run, Lumi: lumi}, nil
}

func parseCounter(s string, limit uint32) (uint32, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "max") {
		return limit, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// MustParseTimePoint is like ParseTimePoint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseTimePoint(s string) TimePoint {
	t, err := ParseTimePoint(s)
	if err != nil {
		panic(err)
	}
	return t
}

// MarshalText implements encoding.TextMarshaler.
func (t TimePoint) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimePoint) UnmarshalText(data []byte) error {
	parsed, err := ParseTimePoint(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
