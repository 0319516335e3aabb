package ir

import (
	"maps"
	"math"
	"slices"
)

// Fixed-point scales. Shifts are stored in nanometres, rotations in
// nanoradians. Input files use millimetres and radians.
const (
	NanometresPerMillimetre = 1_000_000
	NanoradiansPerRadian    = 1_000_000_000
)

// FromMillimetres converts a length in mm to fixed-point nanometres.
func FromMillimetres(mm float64) int64 {
	return int64(math.Round(mm * NanometresPerMillimetre))
}

// FromRadians converts an angle in rad to fixed-point nanoradians.
func FromRadians(rad float64) int64 {
	return int64(math.Round(rad * NanoradiansPerRadian))
}

// ToMillimetres converts fixed-point nanometres back to mm for display.
func ToMillimetres(nm int64) float64 {
	return float64(nm) / NanometresPerMillimetre
}

// ToRadians converts fixed-point nanoradians back to rad for display.
func ToRadians(nrad int64) float64 {
	return float64(nrad) / NanoradiansPerRadian
}

// Shift is the alignment correction of a single element.
type Shift struct {
	ShX  int64 `json:"sh_x"`  // nm
	ShY  int64 `json:"sh_y"`  // nm
	ShZ  int64 `json:"sh_z"`  // nm
	RotX int64 `json:"rot_x"` // nrad
	RotY int64 `json:"rot_y"` // nrad
	RotZ int64 `json:"rot_z"` // nrad
}

// Add returns the component-wise sum of s and o.
func (s Shift) Add(o Shift) Shift {
	return Shift{
		ShX:  s.ShX + o.ShX,
		ShY:  s.ShY + o.ShY,
		ShZ:  s.ShZ + o.ShZ,
		RotX: s.RotX + o.RotX,
		RotY: s.RotY + o.RotY,
		RotZ: s.RotZ + o.RotZ,
	}
}

// IsZero reports whether every component is zero.
func (s Shift) IsZero() bool {
	return s == Shift{}
}

// Corrections is the correction payload valid over one interval.
// The zero value is the identity (no correction).
//
// Sensors and Pots are kept apart because the same numeric id space is
// reused for both kinds of element.
type Corrections struct {
	Sensors map[uint32]Shift `json:"sensors,omitempty"`
	Pots    map[uint32]Shift `json:"pots,omitempty"`
}

// Combine adds other into c, element by element. Mutates c in place.
func (c *Corrections) Combine(other Corrections) {
	c.Sensors = combineShifts(c.Sensors, other.Sensors)
	c.Pots = combineShifts(c.Pots, other.Pots)
}

func combineShifts(dst, src map[uint32]Shift) map[uint32]Shift {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[uint32]Shift, len(src))
	}
	for id, s := range src {
		dst[id] = dst[id].Add(s)
	}
	return dst
}

// SetSensor sets the correction of a sensor, replacing any previous value.
func (c *Corrections) SetSensor(id uint32, s Shift) {
	if c.Sensors == nil {
		c.Sensors = make(map[uint32]Shift)
	}
	c.Sensors[id] = s
}

// SetPot sets the correction of a pot, replacing any previous value.
func (c *Corrections) SetPot(id uint32, s Shift) {
	if c.Pots == nil {
		c.Pots = make(map[uint32]Shift)
	}
	c.Pots[id] = s
}

// Clone returns a deep copy. The identity clones to the identity.
func (c Corrections) Clone() Corrections {
	return Corrections{
		Sensors: cloneShifts(c.Sensors),
		Pots:    cloneShifts(c.Pots),
	}
}

func cloneShifts(m map[uint32]Shift) map[uint32]Shift {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}

// IsEmpty reports whether c carries no elements.
func (c Corrections) IsEmpty() bool {
	return len(c.Sensors) == 0 && len(c.Pots) == 0
}

// Equal reports whether c and o hold the same elements with the same shifts.
// A nil map and an empty map are equal.
func (c Corrections) Equal(o Corrections) bool {
	return maps.Equal(c.Sensors, o.Sensors) && maps.Equal(c.Pots, o.Pots)
}

// SensorIDs returns sensor ids in ascending order.
func (c Corrections) SensorIDs() []uint32 {
	return slices.Sorted(maps.Keys(c.Sensors))
}

// PotIDs returns pot ids in ascending order.
func (c Corrections) PotIDs() []uint32 {
	return slices.Sorted(maps.Keys(c.Pots))
}
