package validate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dynarec/dynarec/internal/config"
	dynerrors "github.com/dynarec/dynarec/internal/errors"
	"github.com/dynarec/dynarec/internal/schema"
	"github.com/dynarec/dynarec/internal/store"
	"github.com/dynarec/dynarec/pkg/types"
)

func newTestGateway(t *testing.T) (*Gateway, *schema.Registry) {
	t.Helper()
	s, err := store.Open(config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	r := schema.NewRegistry(s)
	return NewGateway(r), r
}

func registerOrders(t *testing.T, r *schema.Registry) {
	t.Helper()
	err := r.Register(context.Background(), &types.TableDescriptor{
		TableSlug: "orders",
		Columns: []types.Column{
			{Label: "customer", Type: types.ColTypeString, Required: true},
			{Label: "total", Type: types.ColTypeFloat},
			{Label: "items", Type: types.ColTypeInt},
		},
	})
	assert.NoError(t, err)
}

func TestGateway_CompileUnknownRef(t *testing.T) {
	g, _ := newTestGateway(t)

	_, err := g.Compile(context.Background(), "missing")
	assert.Error(t, err)
	assert.Equal(t, dynerrors.CodeSchemaLoadFailed, dynerrors.GetCode(err))
}

func TestGateway_CompileAndValidate(t *testing.T) {
	g, r := newTestGateway(t)
	registerOrders(t, r)

	fn, err := g.Compile(context.Background(), "orders")
	assert.NoError(t, err)

	assert.NoError(t, fn(types.Fields{"customer": "ada", "total": 9.99, "items": 3}))

	err = fn(types.Fields{"total": "not a number"})
	assert.Error(t, err)
	failures := dynerrors.GetFailures(err)
	assert.Len(t, failures, 2)
}

func TestGateway_CompileIsCached(t *testing.T) {
	g, r := newTestGateway(t)
	registerOrders(t, r)
	ctx := context.Background()

	fn1, err := g.Compile(ctx, "orders")
	assert.NoError(t, err)

	// Mutate the registered schema; the cached function must not change.
	assert.NoError(t, r.Register(ctx, &types.TableDescriptor{
		TableSlug: "orders",
		Columns:   []types.Column{{Label: "customer", Type: types.ColTypeInt, Required: true}},
	}))

	fn2, err := g.Compile(ctx, "orders")
	assert.NoError(t, err)
	assert.NoError(t, fn2(types.Fields{"customer": "ada"}),
		"cached validator still accepts the original string column")
	assert.NoError(t, fn1(types.Fields{"customer": "ada"}))
}

func TestCompileColumns_Types(t *testing.T) {
	tests := []struct {
		name  string
		col   types.Column
		value any
		ok    bool
	}{
		{"string ok", types.Column{Label: "f", Type: types.ColTypeString}, "x", true},
		{"string bad", types.Column{Label: "f", Type: types.ColTypeString}, 1, false},
		{"int ok", types.Column{Label: "f", Type: types.ColTypeInt}, 42, true},
		{"int from whole float", types.Column{Label: "f", Type: types.ColTypeInt}, float64(42), true},
		{"int bad fraction", types.Column{Label: "f", Type: types.ColTypeInt}, 4.2, false},
		{"int bad string", types.Column{Label: "f", Type: types.ColTypeInt}, "42", false},
		{"float ok", types.Column{Label: "f", Type: types.ColTypeFloat}, 3.14, true},
		{"float from int", types.Column{Label: "f", Type: types.ColTypeFloat}, int64(3), true},
		{"float bad", types.Column{Label: "f", Type: types.ColTypeFloat}, true, false},
		{"bool ok", types.Column{Label: "f", Type: types.ColTypeBool}, false, true},
		{"bool bad", types.Column{Label: "f", Type: types.ColTypeBool}, "true", false},
		{"any accepts map", types.Column{Label: "f", Type: types.ColTypeAny}, map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := CompileColumns([]types.Column{tt.col}, false)
			err := fn(types.Fields{"f": tt.value})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCompileColumns_RequiredAndOptional(t *testing.T) {
	fn := CompileColumns([]types.Column{
		{Label: "name", Type: types.ColTypeString, Required: true},
		{Label: "note", Type: types.ColTypeString},
	}, false)

	assert.NoError(t, fn(types.Fields{"name": "ada"}), "optional field may be absent")
	assert.NoError(t, fn(types.Fields{"name": "ada", "note": nil}), "optional field may be nil")

	err := fn(types.Fields{"note": "x"})
	assert.Error(t, err)
	assert.Equal(t, "name", dynerrors.GetFailures(err)[0].Field)
}

func TestCompileColumns_Strict(t *testing.T) {
	cols := []types.Column{{Label: "name", Type: types.ColTypeString}}

	loose := CompileColumns(cols, false)
	assert.NoError(t, loose(types.Fields{"name": "a", "extra": 1}))

	strict := CompileColumns(cols, true)
	err := strict(types.Fields{"name": "a", "extra": 1})
	assert.Error(t, err)
	assert.Equal(t, "extra", dynerrors.GetFailures(err)[0].Field)
}
