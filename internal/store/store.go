// Package store provides the embedded document store backing DynaRec.
// Collections are schemaless: documents are JSON field mappings compressed
// at rest, with a store-assigned identity and a monotonically increasing
// insertion sequence per document.
package store

import (
	"context"

	"github.com/dynarec/dynarec/pkg/types"
)

// SchemaCollection is the reserved collection holding table descriptors.
const SchemaCollection = "_schema"

// IDField is the reserved filter key matching a document's store identity.
const IDField = "_id"

// Document is a stored record: its identity, insertion sequence, and fields.
type Document struct {
	// ID is the store-assigned document identity
	ID string

	// Seq is the insertion-order sequence, unique per store
	Seq int64

	// Fields is the decoded field mapping
	Fields types.Fields
}

// Sort describes a find ordering. The zero value means store-native
// (insertion) order.
type Sort struct {
	// Field orders by a document field ascending (stable). Empty means
	// order by insertion sequence.
	Field string

	// Desc reverses the ordering.
	Desc bool
}

// FindOptions controls Find behavior.
type FindOptions struct {
	// Sort is the result ordering; nil means insertion order
	Sort *Sort

	// Limit caps the result count; 0 means unlimited
	Limit int
}

// Store is the collection-oriented document store boundary.
// Implementations must provide atomic counter increments.
type Store interface {
	// FindOne returns the first document matching filter in insertion
	// order, or nil if none matches.
	FindOne(ctx context.Context, collection string, filter types.Fields) (*Document, error)

	// Find returns all documents matching filter, ordered and limited
	// per opts.
	Find(ctx context.Context, collection string, filter types.Fields, opts FindOptions) ([]*Document, error)

	// InsertOne stores a new document and returns it with its assigned
	// identity and sequence.
	InsertOne(ctx context.Context, collection string, fields types.Fields) (*Document, error)

	// UpdateOne replaces the fields of the first document matching filter.
	// With upsert set, a non-matching filter inserts instead. Returns the
	// stored document, or nil if nothing matched and upsert was off.
	UpdateOne(ctx context.Context, collection string, filter, fields types.Fields, upsert bool) (*Document, error)

	// DeleteOne removes the first document matching filter. Returns
	// whether a document was deleted.
	DeleteOne(ctx context.Context, collection string, filter types.Fields) (bool, error)

	// IncrementCounter atomically increments the sequence counter for a
	// table column and returns the new value, creating the counter on
	// first use.
	IncrementCounter(ctx context.Context, tableSlug, columnLabel string) (int64, error)

	// DecrementCounter decrements a sequence counter, but only while it
	// still holds floor (the value the failed save obtained); a counter
	// advanced by a later increment is left alone. Compensating use only.
	DecrementCounter(ctx context.Context, tableSlug, columnLabel string, floor int64) error

	// SeedCounter creates a zero-valued counter if none exists.
	SeedCounter(ctx context.Context, tableSlug, columnLabel string) error

	// Counters returns all sequence values tracked for a table.
	// An empty map means the table has no counter record.
	Counters(ctx context.Context, tableSlug string) (map[string]int64, error)

	// Close closes the store. No operations may be issued afterwards.
	Close() error
}
