// Package types provides core data types for DynaRec.
package types

import "math"

// Fields is the mutable field mapping of a single record. Values are the
// JSON-representable set: nil, bool, string, int64, float64, []any, and
// nested map[string]any. Integral numbers normalize to int64 after a store
// round-trip; see Normalize.
type Fields map[string]any

// Clone returns a deep copy of the fields.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case Fields:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

// Normalize converts all numeric values to the canonical post-round-trip
// representation: integral numbers become int64, everything else float64.
// Nested maps and slices are normalized in place.
func (f Fields) Normalize() Fields {
	for k, v := range f {
		f[k] = normalizeValue(v)
	}
	return f
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case map[string]any:
		for k, vv := range t {
			t[k] = normalizeValue(vv)
		}
		return t
	case Fields:
		return normalizeValue(map[string]any(t))
	case []any:
		for i, vv := range t {
			t[i] = normalizeValue(vv)
		}
		return t
	default:
		return v
	}
}

func normalizeFloat(v float64) any {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1<<53 {
		return int64(v)
	}
	return v
}

// NumericEqual reports whether two values are equal, treating int64 and
// float64 representations of the same number as equal.
func NumericEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}
