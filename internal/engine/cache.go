package engine

import "github.com/roach88/aligniov/internal/ir"

// ChannelState caches the most recent resolution of one channel.
//
// The zero value is an empty, invalid cache. Refresh re-runs Resolve only
// when the query point leaves the cached interval, so repeated queries
// inside one validity interval cost a single comparison.
//
// ChannelState is not safe for concurrent use.
type ChannelState struct {
	Channel ir.Channel

	interval ir.Interval
	value    ir.Corrections
	valid    bool
	resolves int
}

// NewChannelState creates an empty cache for ch.
func NewChannelState(ch ir.Channel) ChannelState {
	return ChannelState{Channel: ch}
}

// Refresh brings the cache up to date for q.
// Returns true if Resolve was called, false if the cached interval already
// contained q.
func (s *ChannelState) Refresh(seq ir.Sequence, q ir.TimePoint) bool {
	if s.valid && s.interval.Contains(q) {
		return false
	}
	s.interval, s.value = Resolve(seq, q)
	s.valid = true
	s.resolves++
	return true
}

// Current returns a copy of the cached corrections.
// Before the first Refresh this is the identity.
func (s *ChannelState) Current() ir.Corrections {
	return s.value.Clone()
}

// Interval returns the cached validity interval.
// ok is false before the first Refresh.
func (s *ChannelState) Interval() (iv ir.Interval, ok bool) {
	return s.interval, s.valid
}

// Valid reports whether the cache holds a resolution.
func (s *ChannelState) Valid() bool {
	return s.valid
}

// Resolves returns how many times Refresh called Resolve.
func (s *ChannelState) Resolves() int {
	return s.resolves
}
