package store

import (
	"testing"

	"github.com/dynarec/dynarec/pkg/types"
)

func TestMatches(t *testing.T) {
	doc := &Document{
		ID: "d1",
		Fields: types.Fields{
			"name":   "ada",
			"age":    int64(36),
			"score":  3.5,
			"nested": map[string]any{"x": int64(1)},
		},
	}

	tests := []struct {
		name   string
		filter types.Fields
		want   bool
	}{
		{"empty filter matches", types.Fields{}, true},
		{"single key", types.Fields{"name": "ada"}, true},
		{"numeric cross-type", types.Fields{"age": 36}, true},
		{"float", types.Fields{"score": 3.5}, true},
		{"nested map", types.Fields{"nested": map[string]any{"x": 1}}, true},
		{"all keys", types.Fields{"name": "ada", "age": int64(36)}, true},
		{"wrong value", types.Fields{"name": "grace"}, false},
		{"missing key", types.Fields{"city": "london"}, false},
		{"id key ignored", types.Fields{IDField: "other", "name": "ada"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matches(doc, tt.filter); got != tt.want {
				t.Errorf("matches(%v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestSortByFieldIsStable(t *testing.T) {
	docs := []*Document{
		{ID: "a", Fields: types.Fields{"k": int64(2), "tag": "first"}},
		{ID: "b", Fields: types.Fields{"k": int64(1)}},
		{ID: "c", Fields: types.Fields{"k": int64(2), "tag": "second"}},
	}

	sortByField(docs, "k", false)
	if docs[0].ID != "b" || docs[1].ID != "a" || docs[2].ID != "c" {
		t.Errorf("unexpected order: %s %s %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		a, b any
		want int
	}{
		{nil, int64(1), -1},
		{int64(1), int64(2), -1},
		{int64(2), 1.5, 1},
		{"a", "b", -1},
		{int64(1), "a", -1},
		{false, true, -1},
		{int64(3), int64(3), 0},
	}

	for _, tt := range tests {
		got := compareValues(tt.a, tt.b)
		switch {
		case tt.want < 0 && got >= 0, tt.want > 0 && got <= 0, tt.want == 0 && got != 0:
			t.Errorf("compareValues(%v, %v) = %d, want sign %d", tt.a, tt.b, got, tt.want)
		}
	}
}
