package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// CRITICAL: This is the ONLY serialization used for digests and for the
// corrections column in the store.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. No floats (returns error)
// 5. No null (returns error)
//
// Accepts the ir value types (TimePoint, Interval, Shift, Corrections,
// Entry, Sequence, Channel) as well as string/int/bool/[]any/map[string]any.
func MarshalCanonical(v any) ([]byte, error) {
	return marshalCanonical(v)
}

func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	case int:
		return []byte(strconv.Itoa(val)), nil
	case uint32:
		return []byte(strconv.FormatUint(uint64(val), 10)), nil
	case bool:
		return []byte(strconv.FormatBool(val)), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case TimePoint:
		return marshalCanonicalString(val.String())
	case Channel:
		if !val.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, int(val))
		}
		return marshalCanonicalString(val.String())
	case Interval:
		return marshalCanonicalObject(intervalObject(val))
	case Shift:
		return marshalCanonicalObject(shiftObject(val))
	case Corrections:
		return marshalCanonicalObject(correctionsObject(val))
	case Entry:
		return marshalCanonicalObject(entryObject(val))
	case Sequence:
		arr := make([]any, len(val))
		for i, e := range val {
			arr[i] = entryObject(e)
		}
		return marshalCanonicalArray(arr)
	case []any:
		return marshalCanonicalArray(val)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalCanonicalArray(arr)
	case map[string]any:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func intervalObject(iv Interval) map[string]any {
	return map[string]any{
		"first": iv.First.String(),
		"last":  iv.Last.String(),
	}
}

func shiftObject(s Shift) map[string]any {
	return map[string]any{
		"sh_x":  s.ShX,
		"sh_y":  s.ShY,
		"sh_z":  s.ShZ,
		"rot_x": s.RotX,
		"rot_y": s.RotY,
		"rot_z": s.RotZ,
	}
}

// correctionsObject keys elements by decimal id. Empty maps are omitted so
// that a nil map and an empty map serialize identically.
func correctionsObject(c Corrections) map[string]any {
	obj := map[string]any{}
	if len(c.Sensors) > 0 {
		obj["sensors"] = shiftsObject(c.Sensors)
	}
	if len(c.Pots) > 0 {
		obj["pots"] = shiftsObject(c.Pots)
	}
	return obj
}

func shiftsObject(m map[uint32]Shift) map[string]any {
	obj := make(map[string]any, len(m))
	for id, s := range m {
		obj[strconv.FormatUint(uint64(id), 10)] = shiftObject(s)
	}
	return obj
}

func entryObject(e Entry) map[string]any {
	return map[string]any{
		"interval":    intervalObject(e.Interval),
		"corrections": correctionsObject(e.Corrections),
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// marshalCanonicalString produces canonical JSON string with NFC normalization.
// RFC 8785 compliance:
// - No HTML escaping (<, >, & are NOT escaped)
// - U+2028 and U+2029 are NOT escaped
// - Only control characters (U+0000-U+001F), backslash, and quote are escaped
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	// Go escapes U+2028/U+2029 for JavaScript; RFC 8785 does not.
	return unescapeU2028U2029(result), nil
}

// unescapeU2028U2029 turns \u2028 and \u2029 escapes back into literal
// characters. An escape preceded by an odd number of backslashes is a
// literal "\u202x" text and is kept.
func unescapeU2028U2029(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') && trailingBackslashes(out)%2 == 0 {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func trailingBackslashes(b []byte) int {
	n := 0
	for j := len(b) - 1; j >= 0 && b[j] == '\\'; j-- {
		n++
	}
	return n
}

// marshalCanonicalArray marshals an array to canonical JSON.
func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalCanonicalObject marshals an object to canonical JSON with RFC 8785 key ordering.
func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range SortedKeys(obj) {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalCorrections parses the canonical corrections object written by
// MarshalCanonical. Numbers are decoded as int64 via json.Number, never
// through float64.
func UnmarshalCorrections(data []byte) (Corrections, error) {
	var raw struct {
		Sensors map[string]map[string]json.Number `json:"sensors"`
		Pots    map[string]map[string]json.Number `json:"pots"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Corrections{}, fmt.Errorf("unmarshal corrections: %w", err)
	}

	sensors, err := decodeShifts(raw.Sensors)
	if err != nil {
		return Corrections{}, fmt.Errorf("sensors: %w", err)
	}
	pots, err := decodeShifts(raw.Pots)
	if err != nil {
		return Corrections{}, fmt.Errorf("pots: %w", err)
	}
	return Corrections{Sensors: sensors, Pots: pots}, nil
}

func decodeShifts(raw map[string]map[string]json.Number) (map[uint32]Shift, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint32]Shift, len(raw))
	for key, fields := range raw {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("element id %q: %w", key, err)
		}
		var s Shift
		for name, dst := range map[string]*int64{
			"sh_x": &s.ShX, "sh_y": &s.ShY, "sh_z": &s.ShZ,
			"rot_x": &s.RotX, "rot_y": &s.RotY, "rot_z": &s.RotZ,
		} {
			n, ok := fields[name]
			if !ok {
				continue
			}
			v, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("element %d %s: %w", id, name, err)
			}
			*dst = v
		}
		out[uint32(id)] = s
	}
	return out, nil
}
