package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aligniov/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Channels maps channel names to their ordered source files.
	// Paths are relative to the scenario file location.
	Channels map[string][]string `yaml:"channels"`

	// BuildError, when set, is the loader error code the build must fail
	// with (e.g. "E006"). Queries are not run for such scenarios.
	BuildError string `yaml:"build_error,omitempty"`

	// Queries are issued in order against one Provider, so the channel
	// caches carry over from one query to the next.
	Queries []Query `yaml:"queries"`

	// Assertions validate the provider state after all queries.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Query is one resolution request.
type Query struct {
	Channel string  `yaml:"channel"`
	At      string  `yaml:"at"`
	Expect  *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected resolution. Unset fields are not checked.
type Expect struct {
	// First and Last bound the expected interval; "eot" means end of time.
	First string `yaml:"first,omitempty"`
	Last  string `yaml:"last,omitempty"`

	// Empty expects the identity (true) or a non-identity value (false).
	Empty *bool `yaml:"empty,omitempty"`

	// Refreshed expects the query to have (not) run the resolver.
	Refreshed *bool `yaml:"refreshed,omitempty"`

	// Sensors and Pots, when present, must match the value exactly:
	// same ids, same shifts.
	Sensors map[uint32]ExpectShift `yaml:"sensors,omitempty"`
	Pots    map[uint32]ExpectShift `yaml:"pots,omitempty"`

	// Error is a substring of the expected query error.
	Error string `yaml:"error,omitempty"`
}

// ExpectShift is an expected element correction in nm and nrad.
type ExpectShift struct {
	ShX  int64 `yaml:"sh_x"`
	ShY  int64 `yaml:"sh_y"`
	ShZ  int64 `yaml:"sh_z"`
	RotX int64 `yaml:"rot_x"`
	RotY int64 `yaml:"rot_y"`
	RotZ int64 `yaml:"rot_z"`
}

func (e ExpectShift) shift() ir.Shift {
	return ir.Shift{ShX: e.ShX, ShY: e.ShY, ShZ: e.ShZ, RotX: e.RotX, RotY: e.RotY, RotZ: e.RotZ}
}

// Assertion validates provider state after the queries.
type Assertion struct {
	// Type specifies the assertion type:
	// - "resolve_count": resolver runs on Channel equal Count
	// - "sequence_length": merged entries of Channel equal Count
	// - "contiguous": merged entries of Channel leave no gap
	Type string `yaml:"type"`

	Channel string `yaml:"channel"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertResolveCount   = "resolve_count"
	AssertSequenceLength = "sequence_length"
	AssertContiguous     = "contiguous"
)

// LoadScenario reads and parses a scenario YAML file, resolving source
// paths relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "query:" vs "queries:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for name, files := range scenario.Channels {
		for i, f := range files {
			if !filepath.IsAbs(f) {
				files[i] = filepath.Join(base, f)
			}
		}
		scenario.Channels[name] = files
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Query channels are not checked here: an unknown channel is a legitimate
// query whose error can be expected.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	for name, files := range s.Channels {
		if _, err := ir.ParseChannel(name); err != nil {
			return fmt.Errorf("channels: %w", err)
		}
		for _, f := range files {
			if _, err := os.Stat(f); os.IsNotExist(err) {
				return fmt.Errorf("channels.%s: source file not found: %s", name, f)
			}
		}
	}

	if s.BuildError == "" && len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, q := range s.Queries {
		if q.Channel == "" {
			return fmt.Errorf("queries[%d]: channel is required", i)
		}
		if _, err := ir.ParseTimePoint(q.At); err != nil {
			return fmt.Errorf("queries[%d]: at: %w", i, err)
		}
		if q.Expect == nil {
			continue
		}
		if q.Expect.First != "" {
			if _, err := ir.ParseTimePoint(q.Expect.First); err != nil {
				return fmt.Errorf("queries[%d].expect.first: %w", i, err)
			}
		}
		if q.Expect.Last != "" && q.Expect.Last != "eot" {
			if _, err := ir.ParseTimePoint(q.Expect.Last); err != nil {
				return fmt.Errorf("queries[%d].expect.last: %w", i, err)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if _, err := ir.ParseChannel(a.Channel); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}

	switch a.Type {
	case AssertResolveCount, AssertSequenceLength:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertContiguous:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
