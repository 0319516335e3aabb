package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/aligniov/internal/ir"
)

// marshalCorrections converts Corrections to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalCorrections(c ir.Corrections) (string, error) {
	data, err := ir.MarshalCanonical(c)
	if err != nil {
		return "", fmt.Errorf("marshal corrections: %w", err)
	}
	return string(data), nil
}

// unmarshalCorrections parses canonical JSON TEXT to Corrections.
// Values go through json.Number to keep every fixed-point digit.
func unmarshalCorrections(data string) (ir.Corrections, error) {
	if data == "" || data == "{}" {
		return ir.Corrections{}, nil
	}
	return ir.UnmarshalCorrections([]byte(data))
}

// marshalSources converts the source file list to a canonical JSON array.
func marshalSources(sources []string) (string, error) {
	if sources == nil {
		sources = []string{}
	}
	data, err := ir.MarshalCanonical(sources)
	if err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}
	return string(data), nil
}

// unmarshalSources parses a JSON array of file names.
func unmarshalSources(data string) ([]string, error) {
	sources := []string{}
	if data == "" {
		return sources, nil
	}
	if err := json.Unmarshal([]byte(data), &sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	return sources, nil
}
