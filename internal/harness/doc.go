// Package harness runs conformance scenarios against the correction
// provider.
//
// A scenario names the source files of each channel, a list of queries in
// the order a host would issue them, and assertions over the result. The
// harness builds a real Provider through the loader and the merger, runs
// every query through the channel caches, and records a trace.
//
// # Scenario Format
//
//	name: overlap_additivity
//	description: "Overlapping files add up"
//	channels:
//	  measured: [../sources/a.yaml, ../sources/b.xml]
//	  real: [../sources/real.cue]
//	queries:
//	  - channel: measured
//	    at: "4:0"
//	    expect:
//	      first: "4:0"
//	      last: "5:max"
//	      refreshed: true
//	      sensors: {1: {sh_x: 30000}}
//	assertions:
//	  - type: resolve_count
//	    channel: measured
//	    count: 3
//
// Source paths are relative to the scenario file. Expected shifts are in
// the stored fixed-point units (nm, nrad). A scenario that expects the
// build to fail sets build_error to the loader error code.
//
// # Assertion Types
//
//   - resolve_count: the resolver ran exactly count times on channel
//   - sequence_length: the merged sequence of channel has count entries
//   - contiguous: each merged entry starts one lumi block after the
//     previous one ends
//
// # Golden Traces
//
// RunWithGolden serializes the trace as canonical JSON and compares it with
// testdata/golden/<name>.golden. Traces carry no paths or wall-clock data,
// so they are identical on every machine.
package harness
