package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownChannel is returned for a channel name or value outside the
// declared set.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel selects one of the independent correction streams.
type Channel int

const (
	Measured Channel = iota
	Real
	Misaligned

	// NumChannels sizes per-channel tables.
	NumChannels = int(Misaligned) + 1
)

var channelNames = [NumChannels]string{
	Measured:   "measured",
	Real:       "real",
	Misaligned: "misaligned",
}

// Channels returns every channel in declaration order.
func Channels() []Channel {
	return []Channel{Measured, Real, Misaligned}
}

// Valid reports whether c is one of the declared channels.
func (c Channel) Valid() bool {
	return c >= Measured && c <= Misaligned
}

func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// ParseChannel parses a channel name, case-insensitively.
// Returns ErrUnknownChannel (wrapped) for anything else.
func ParseChannel(name string) (Channel, error) {
	for i, n := range channelNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Channel) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(data []byte) error {
	parsed, err := ParseChannel(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
