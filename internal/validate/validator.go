// Package validate compiles table descriptors into validation functions.
// Compiled functions are cached by schema reference for the lifetime of the
// gateway; descriptors are immutable once registered, so the cache is never
// invalidated.
package validate

import (
	"context"
	"fmt"
	"math"
	"sync"

	dynerrors "github.com/dynarec/dynarec/internal/errors"
	"github.com/dynarec/dynarec/internal/schema"
	"github.com/dynarec/dynarec/pkg/types"
)

// ValidateFunc checks a field mapping against a compiled schema. It returns
// nil on success, or a validation error carrying per-field failures.
type ValidateFunc func(fields types.Fields) error

// Gateway resolves schema references into validation functions on demand.
// Resolution is asynchronous with respect to construction: the descriptor is
// loaded from the registry's backing store at first Compile.
type Gateway struct {
	registry *schema.Registry

	mu    sync.RWMutex
	cache map[string]ValidateFunc
}

// NewGateway creates a validator gateway over the given registry.
func NewGateway(r *schema.Registry) *Gateway {
	return &Gateway{
		registry: r,
		cache:    make(map[string]ValidateFunc),
	}
}

// Compile resolves a validation function for a schema reference (a table
// slug), compiling and caching it as needed.
func (g *Gateway) Compile(ctx context.Context, schemaRef string) (ValidateFunc, error) {
	g.mu.RLock()
	if fn, ok := g.cache[schemaRef]; ok {
		g.mu.RUnlock()
		return fn, nil
	}
	g.mu.RUnlock()

	desc, err := g.registry.Read(ctx, schemaRef)
	if err != nil {
		return nil, dynerrors.NewSchemaLoadError(schemaRef, err)
	}
	if !desc.Exists() {
		return nil, dynerrors.NewSchemaLoadError(schemaRef, nil)
	}

	fn := CompileColumns(desc.Columns, desc.Strict)

	g.mu.Lock()
	defer g.mu.Unlock()
	// Double-check after acquiring write lock
	if cached, ok := g.cache[schemaRef]; ok {
		return cached, nil
	}
	g.cache[schemaRef] = fn
	return fn, nil
}

// CompileColumns builds a validation function over an explicit column list.
// With strict set, fields not declared in columns are rejected.
func CompileColumns(columns []types.Column, strict bool) ValidateFunc {
	declared := make(map[string]types.Column, len(columns))
	for _, col := range columns {
		declared[col.Label] = col
	}

	return func(fields types.Fields) error {
		var failures []dynerrors.FieldFailure

		for _, col := range columns {
			value, present := fields[col.Label]
			if !present || value == nil {
				if col.Required {
					failures = append(failures, dynerrors.FieldFailure{
						Field:   col.Label,
						Message: "required field missing",
					})
				}
				continue
			}
			if msg := checkType(col.Type, value); msg != "" {
				failures = append(failures, dynerrors.FieldFailure{Field: col.Label, Message: msg})
			}
		}

		if strict {
			for label := range fields {
				if _, ok := declared[label]; !ok {
					failures = append(failures, dynerrors.FieldFailure{
						Field:   label,
						Message: "field not declared in schema",
					})
				}
			}
		}

		if len(failures) > 0 {
			return dynerrors.NewValidationError(failures)
		}
		return nil
	}
}

// checkType checks a value against a declared column type. It returns an
// empty string on success, else a failure description.
func checkType(colType types.ColumnType, value any) string {
	switch colType {
	case types.ColTypeAny:
		return ""
	case types.ColTypeString:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("expected string, got %T", value)
		}
	case types.ColTypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("expected bool, got %T", value)
		}
	case types.ColTypeInt:
		if !isIntegral(value) {
			return fmt.Sprintf("expected int, got %T", value)
		}
	case types.ColTypeFloat:
		switch value.(type) {
		case int, int64, float32, float64:
		default:
			return fmt.Sprintf("expected float, got %T", value)
		}
	default:
		return fmt.Sprintf("unknown column type %q", colType)
	}
	return ""
}

// isIntegral accepts int-kind values plus floats with no fractional part;
// JSON round-trips erase the int/float distinction for whole numbers.
func isIntegral(value any) bool {
	switch t := value.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return true
	case float64:
		return t == math.Trunc(t)
	case float32:
		return float64(t) == math.Trunc(float64(t))
	}
	return false
}
