// Package engine builds and queries per-channel correction timelines.
//
// The engine is the only algorithmic part of aligniov. Loaders hand it raw
// sequences that may overlap and may leave gaps; Merge sweeps their
// boundaries into one non-overlapping partition, and Resolve answers point
// queries against that partition.
//
// ARCHITECTURE:
//
// Build once, read many:
// Each channel's sequence is merged exactly once, before any query. After
// that the sequence is never written again and may be shared by any number
// of readers without locking.
//
// Query flow:
// 1. Host asks Provider.Resolve(channel, point)
// 2. The channel's ChannelState checks its cached interval
// 3. Only when the point left that interval is Resolve re-run
// 4. The cached (interval, corrections) pair is returned
//
// The ChannelState caches are plain values owned by the Provider. A Provider
// is single-owner: one goroutine drives its queries. Hosts that need
// concurrent queries build one Provider per goroutine over the shared
// sequences with NewProvider.
//
// CRITICAL PATTERNS:
//
// Deterministic merge:
// Boundary keys are swept in time order and active values are summed in
// arena order. Corrections are fixed-point integers, so any input ordering
// produces the same bytes.
//
// No silent emptiness:
// A channel whose files fail to load never becomes an empty channel. Build
// returns the load error instead.
package engine
