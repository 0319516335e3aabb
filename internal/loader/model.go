package loader

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/aligniov/internal/ir"
)

// Bounds on raw correction values. Far beyond any real misalignment, and
// low enough that sums of billions of overlapping entries fit in int64.
const (
	maxShiftMM     = 1e3
	maxRotationRad = 10
)

// document is the format-neutral content of one source file.
// YAML and CUE decode into it directly; XML is converted into it.
//
// Top-level sensors and pots apply to all time.
type document struct {
	IOVs    []iov     `yaml:"iovs" json:"iovs" validate:"dive"`
	Sensors []element `yaml:"sensors" json:"sensors" validate:"dive"`
	Pots    []element `yaml:"pots" json:"pots" validate:"dive"`
}

// iov is one validity interval with its corrections.
// A missing first means the beginning of time, a missing last the end.
type iov struct {
	First   string    `yaml:"first" json:"first" validate:"omitempty,timepoint"`
	Last    string    `yaml:"last" json:"last" validate:"omitempty,timepoint"`
	Sensors []element `yaml:"sensors" json:"sensors" validate:"dive"`
	Pots    []element `yaml:"pots" json:"pots" validate:"dive"`
}

// element is the correction of one sensor or pot.
// Shifts are in millimetres, rotations in radians.
type element struct {
	ID   *uint32 `yaml:"id" json:"id" validate:"required"`
	ShX  float64 `yaml:"sh_x" json:"sh_x"`
	ShY  float64 `yaml:"sh_y" json:"sh_y"`
	ShZ  float64 `yaml:"sh_z" json:"sh_z"`
	RotX float64 `yaml:"rot_x" json:"rot_x"`
	RotY float64 `yaml:"rot_y" json:"rot_y"`
	RotZ float64 `yaml:"rot_z" json:"rot_z"`
}

// docValidate is the validator instance for decoded documents.
// Initialized in init() with the time point rule and yaml field names.
var docValidate *validator.Validate

func init() {
	docValidate = validator.New()

	docValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = docValidate.RegisterValidation("timepoint", validateTimePoint)
}

// validateTimePoint accepts anything ir.ParseTimePoint accepts.
func validateTimePoint(fl validator.FieldLevel) bool {
	_, err := ir.ParseTimePoint(fl.Field().String())
	return err == nil
}

// validate checks structural rules and returns the first violation as a
// LoadError.
func (d *document) validate() error {
	err := docValidate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "document.")
	switch fe.Tag() {
	case "timepoint":
		return &LoadError{
			Code:    ErrCodeInvalidIOV,
			Message: fmt.Sprintf("%s: invalid time point %q", field, fe.Value()),
		}
	case "required":
		return &LoadError{
			Code:    ErrCodeInvalidElement,
			Message: fmt.Sprintf("%s is required", field),
		}
	default:
		return &LoadError{
			Code:    ErrCodeInvalidElement,
			Message: fmt.Sprintf("%s: failed %q check", field, fe.Tag()),
		}
	}
}

// sequence converts the document into a raw, unmerged sequence.
// Entries keep file order; overlaps are left for the merger.
func (d *document) sequence() (ir.Sequence, error) {
	var seq ir.Sequence

	if len(d.Sensors) > 0 || len(d.Pots) > 0 {
		c, err := corrections("", d.Sensors, d.Pots)
		if err != nil {
			return nil, err
		}
		seq = append(seq, ir.Entry{
			Interval:    ir.Interval{First: ir.MinTimePoint, Last: ir.EndOfTime},
			Corrections: c,
		})
	}

	for i, v := range d.IOVs {
		where := fmt.Sprintf("iovs[%d]", i)

		iv, err := v.interval(where)
		if err != nil {
			return nil, err
		}
		c, err := corrections(where+".", v.Sensors, v.Pots)
		if err != nil {
			return nil, err
		}
		seq = append(seq, ir.Entry{Interval: iv, Corrections: c})
	}

	return seq, nil
}

func (v iov) interval(where string) (ir.Interval, error) {
	first, last := ir.MinTimePoint, ir.EndOfTime

	if v.First != "" {
		t, err := ir.ParseTimePoint(v.First)
		if err != nil {
			return ir.Interval{}, &LoadError{Code: ErrCodeInvalidIOV, Message: fmt.Sprintf("%s.first: %v", where, err)}
		}
		first = t
	}
	if v.Last != "" {
		t, err := ir.ParseTimePoint(v.Last)
		if err != nil {
			return ir.Interval{}, &LoadError{Code: ErrCodeInvalidIOV, Message: fmt.Sprintf("%s.last: %v", where, err)}
		}
		last = t
	}

	iv, err := ir.NewInterval(first, last)
	if err != nil {
		return ir.Interval{}, &LoadError{Code: ErrCodeInvalidIOV, Message: fmt.Sprintf("%s: %v", where, err)}
	}
	return iv, nil
}

// corrections sums the elements of one block. An id listed twice in the
// same block is added, the same way overlapping blocks are.
func corrections(prefix string, sensors, pots []element) (ir.Corrections, error) {
	var c ir.Corrections

	for i, e := range sensors {
		s, err := e.shift(fmt.Sprintf("%ssensors[%d]", prefix, i))
		if err != nil {
			return ir.Corrections{}, err
		}
		var one ir.Corrections
		one.SetSensor(*e.ID, s)
		c.Combine(one)
	}
	for i, e := range pots {
		s, err := e.shift(fmt.Sprintf("%spots[%d]", prefix, i))
		if err != nil {
			return ir.Corrections{}, err
		}
		var one ir.Corrections
		one.SetPot(*e.ID, s)
		c.Combine(one)
	}

	return c, nil
}

func (e element) shift(where string) (ir.Shift, error) {
	if e.ID == nil {
		return ir.Shift{}, &LoadError{Code: ErrCodeInvalidElement, Message: where + ".id is required"}
	}

	raw := []struct {
		name  string
		value float64
		limit float64
	}{
		{"sh_x", e.ShX, maxShiftMM}, {"sh_y", e.ShY, maxShiftMM}, {"sh_z", e.ShZ, maxShiftMM},
		{"rot_x", e.RotX, maxRotationRad}, {"rot_y", e.RotY, maxRotationRad}, {"rot_z", e.RotZ, maxRotationRad},
	}
	for _, f := range raw {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || math.Abs(f.value) > f.limit {
			return ir.Shift{}, &LoadError{
				Code:    ErrCodeInvalidElement,
				Message: fmt.Sprintf("%s.%s: value %v out of range", where, f.name, f.value),
			}
		}
	}

	return ir.Shift{
		ShX:  ir.FromMillimetres(e.ShX),
		ShY:  ir.FromMillimetres(e.ShY),
		ShZ:  ir.FromMillimetres(e.ShZ),
		RotX: ir.FromRadians(e.RotX),
		RotY: ir.FromRadians(e.RotY),
		RotZ: ir.FromRadians(e.RotZ),
	}, nil
}
