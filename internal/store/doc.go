// Package store provides SQLite-backed storage for merged correction
// sequences.
//
// Each stored build is one channel's merged sequence together with the
// source files it came from:
//   - builds: one row per distinct (channel, digest)
//   - entries: the ordered entries of a build, corrections as canonical JSON
//
// # Critical Patterns
//
// Content identity
//   - UNIQUE(channel, digest), digest from ir.SequenceDigest
//   - Writing the same merged sequence twice returns the first build
//
// Logical ordering
//   - Builds are ordered by seq INTEGER, NEVER timestamps
//   - All list queries use ORDER BY seq ASC; entries use ORDER BY idx ASC
//
// Lossless values
//   - Corrections are stored as RFC 8785 canonical JSON of fixed-point
//     integers and read back through json.Number, never float64
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
