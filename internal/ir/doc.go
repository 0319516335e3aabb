// Package ir provides the value types shared by every aligniov package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// time model at the bottom of the dependency graph.
//
// Key design constraints:
//   - Time is a (run, lumi) pair, never wall-clock time
//   - NO float types in corrections - shifts are fixed-point int64 so that
//     combining is associative and commutative bit-for-bit
//   - Sequences are immutable once built; readers copy values out
//   - All JSON tags use snake_case
package ir
