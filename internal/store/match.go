package store

import (
	"sort"

	"github.com/dynarec/dynarec/pkg/types"
)

// matches reports whether a document satisfies a filter: every filter key
// must be present with an equal value. Numeric values compare across int64
// and float64 representations. The reserved identity key is handled by the
// caller and ignored here.
func matches(doc *Document, filter types.Fields) bool {
	for k, want := range filter {
		if k == IDField {
			continue
		}
		got, ok := doc.Fields[k]
		if !ok {
			return false
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	am, aIsMap := a.(map[string]any)
	bm, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !valueEqual(av, bv) {
				return false
			}
		}
		return true
	}

	as, aIsSlice := a.([]any)
	bs, bIsSlice := b.([]any)
	if aIsSlice && bIsSlice {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !valueEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}

	return types.NumericEqual(a, b)
}

// sortByField stable-sorts documents ascending by a field. Missing fields
// sort first; mixed types group by kind (nil, numbers, strings, bools).
func sortByField(docs []*Document, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		less := compareValues(docs[i].Fields[field], docs[j].Fields[field]) < 0
		if desc {
			return compareValues(docs[j].Fields[field], docs[i].Fields[field]) < 0
		}
		return less
	})
}

// compareValues imposes a total order usable for sorting: nil < numbers <
// strings < bools < everything else (stable within the last group).
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1: // numbers
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case 2: // strings
		as, bs := a.(string), b.(string)
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	case 3: // bools: false < true
		ab, bb := a.(bool), b.(bool)
		switch {
		case !ab && bb:
			return -1
		case ab && !bb:
			return 1
		}
		return 0
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int64, float64, float32:
		return 1
	case string:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
