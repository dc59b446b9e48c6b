// Package schema provides the table descriptor registry and per-table
// sequence counters layered over the document store.
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	dynerrors "github.com/dynarec/dynarec/internal/errors"
	"github.com/dynarec/dynarec/internal/store"
	"github.com/dynarec/dynarec/pkg/types"
)

// CounterRecord holds the sequence state of one table: one entry per
// auto-incrementing column. A table without auto-incrementing columns has
// no counter record at all.
type CounterRecord struct {
	TableSlug string
	Sequences map[string]int64
}

// Registry reads and writes table descriptors and manages their sequence
// counters.
type Registry struct {
	store store.Store
}

// NewRegistry creates a registry over the given store.
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// Read fetches the stored descriptor for a table, restoring namespaced
// attribute keys. An absent descriptor returns an empty-slug descriptor;
// callers must treat an empty TableSlug as "table does not exist", not as
// an empty valid schema.
func (r *Registry) Read(ctx context.Context, tableSlug string) (*types.TableDescriptor, error) {
	doc, err := r.store.FindOne(ctx, store.SchemaCollection, types.Fields{"tableSlug": tableSlug})
	if err != nil {
		return nil, dynerrors.NewStoreError(fmt.Sprintf("failed to read descriptor for table %q", tableSlug), err)
	}
	if doc == nil {
		return &types.TableDescriptor{}, nil
	}

	desc, err := descriptorFromFields(restoreKeys(doc.Fields))
	if err != nil {
		return nil, dynerrors.NewSchemaLoadError(tableSlug, err)
	}
	return desc, nil
}

// Register validates and persists a table descriptor, upserting by slug,
// and seeds a zero counter for every auto-incrementing column.
func (r *Registry) Register(ctx context.Context, desc *types.TableDescriptor) error {
	if !types.ValidSlug(desc.TableSlug) {
		return dynerrors.New(dynerrors.ErrCategorySchema, dynerrors.CodeInvalidSlug,
			fmt.Sprintf("table slug %q must be lowercase and whitespace-free", desc.TableSlug))
	}
	for _, col := range desc.Columns {
		if !col.Type.Valid() {
			return dynerrors.New(dynerrors.ErrCategorySchema, dynerrors.CodeSchemaLoadFailed,
				fmt.Sprintf("column %q has unknown type %q", col.Label, col.Type))
		}
	}

	fields, err := fieldsFromDescriptor(desc)
	if err != nil {
		return dynerrors.NewInternalError("failed to encode descriptor", err)
	}

	if _, err := r.store.UpdateOne(ctx, store.SchemaCollection,
		types.Fields{"tableSlug": desc.TableSlug}, escapeKeys(fields), true); err != nil {
		return dynerrors.NewStoreError(fmt.Sprintf("failed to write descriptor for table %q", desc.TableSlug), err)
	}

	for _, label := range desc.AutoIncrementColumns() {
		if err := r.store.SeedCounter(ctx, desc.TableSlug, label); err != nil {
			return dynerrors.NewStoreError(fmt.Sprintf("failed to seed counter %s.%s", desc.TableSlug, label), err)
		}
	}
	return nil
}

// Counters returns the counter record for a table. An empty Sequences map
// means the table tracks no sequences.
func (r *Registry) Counters(ctx context.Context, tableSlug string) (*CounterRecord, error) {
	sequences, err := r.store.Counters(ctx, tableSlug)
	if err != nil {
		return nil, dynerrors.NewStoreError(fmt.Sprintf("failed to read counters for table %q", tableSlug), err)
	}
	return &CounterRecord{TableSlug: tableSlug, Sequences: sequences}, nil
}

// IncrementCounter atomically increments and returns the new sequence value
// for a column, creating the counter on first use.
func (r *Registry) IncrementCounter(ctx context.Context, tableSlug, columnLabel string) (int64, error) {
	value, err := r.store.IncrementCounter(ctx, tableSlug, columnLabel)
	if err != nil {
		return 0, dynerrors.NewStoreError(fmt.Sprintf("failed to increment counter %s.%s", tableSlug, columnLabel), err)
	}
	return value, nil
}

// DecrementCounter is the best-effort compensating decrement used to unwind
// a failed insert's pre-incremented counters. floor is the value the failed
// save had obtained; the counter never moves below the last committed value.
func (r *Registry) DecrementCounter(ctx context.Context, tableSlug, columnLabel string, floor int64) error {
	if err := r.store.DecrementCounter(ctx, tableSlug, columnLabel, floor); err != nil {
		return dynerrors.NewStoreError(fmt.Sprintf("failed to decrement counter %s.%s", tableSlug, columnLabel), err)
	}
	return nil
}

// descriptorFromFields decodes restored descriptor fields into a
// TableDescriptor.
func descriptorFromFields(fields types.Fields) (*types.TableDescriptor, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to encode descriptor fields: %w", err)
	}
	var desc types.TableDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("schema: failed to decode descriptor: %w", err)
	}
	return &desc, nil
}

// fieldsFromDescriptor encodes a descriptor as storable fields with "$"
// keys still un-escaped.
func fieldsFromDescriptor(desc *types.TableDescriptor) (types.Fields, error) {
	raw, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to encode descriptor: %w", err)
	}
	var fields types.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("schema: failed to decode descriptor fields: %w", err)
	}
	return fields, nil
}
