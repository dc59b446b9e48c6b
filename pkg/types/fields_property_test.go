package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_FieldsNormalization validates canonicalization of numeric
// values: normalization is idempotent and never changes numeric meaning.
func TestProperty_FieldsNormalization(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("a whole float normalizes to the equal int64", prop.ForAll(
		func(n int32) bool {
			f := Fields{"v": float64(n)}
			f.Normalize()
			v, ok := f["v"].(int64)
			return ok && v == int64(n)
		},
		gen.Int32(),
	))

	properties.Property("normalization is idempotent", prop.ForAll(
		func(i int64, fr float64) bool {
			f := Fields{"i": i, "f": fr, "s": "x"}
			f.Normalize()
			first := Fields{"i": f["i"], "f": f["f"], "s": f["s"]}
			f.Normalize()
			return f["i"] == first["i"] && f["f"] == first["f"] && f["s"] == first["s"]
		},
		gen.Int64(),
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("int64 and the same-valued float compare equal", prop.ForAll(
		func(n int32) bool {
			return NumericEqual(int64(n), float64(n)) && NumericEqual(float64(n), int64(n))
		},
		gen.Int32(),
	))

	properties.Property("Clone is deep: mutating the clone leaves the source intact", prop.ForAll(
		func(a, b int64) bool {
			src := Fields{"n": a, "nested": map[string]any{"m": a}}
			dup := src.Clone()
			dup["n"] = b
			dup["nested"].(map[string]any)["m"] = b
			return src["n"] == a && src["nested"].(map[string]any)["m"] == a
		},
		gen.Int64(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
