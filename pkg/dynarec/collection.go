package dynarec

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dynarec/dynarec/pkg/types"
)

// Collection is an ordered sequence of records. Insertion order reflects
// the caller's intent (or the query ordering that produced it). Collections
// are not safe for concurrent mutation.
type Collection struct {
	records []*Record
}

// NewCollection builds a collection from records, in order.
func NewCollection(records ...*Record) *Collection {
	return &Collection{records: append([]*Record(nil), records...)}
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// At returns the record at index i, or nil when out of bounds.
func (c *Collection) At(i int) *Record {
	if i < 0 || i >= len(c.records) {
		return nil
	}
	return c.records[i]
}

// Push appends records to the end.
func (c *Collection) Push(records ...*Record) *Collection {
	c.records = append(c.records, records...)
	return c
}

// Pop removes and returns the last record, nil when empty.
func (c *Collection) Pop() *Record {
	if len(c.records) == 0 {
		return nil
	}
	last := c.records[len(c.records)-1]
	c.records = c.records[:len(c.records)-1]
	return last
}

// Shift removes and returns the first record, nil when empty.
func (c *Collection) Shift() *Record {
	if len(c.records) == 0 {
		return nil
	}
	first := c.records[0]
	c.records = c.records[1:]
	return first
}

// Unshift prepends records, preserving their given order.
func (c *Collection) Unshift(records ...*Record) *Collection {
	c.records = append(append([]*Record(nil), records...), c.records...)
	return c
}

// Slice returns a new collection holding records [i, j), clamped to bounds.
func (c *Collection) Slice(i, j int) *Collection {
	i, j = clamp(i, len(c.records)), clamp(j, len(c.records))
	if i > j {
		i = j
	}
	return NewCollection(c.records[i:j]...)
}

// Splice removes deleteCount records starting at start, inserts items in
// their place, and returns the removed records.
func (c *Collection) Splice(start, deleteCount int, items ...*Record) *Collection {
	start = clamp(start, len(c.records))
	end := start + deleteCount
	if deleteCount < 0 {
		end = start
	}
	end = clamp(end, len(c.records))

	removed := NewCollection(c.records[start:end]...)

	rest := append([]*Record(nil), c.records[end:]...)
	c.records = append(c.records[:start], items...)
	c.records = append(c.records, rest...)
	return removed
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// Each calls fn for every record in order.
func (c *Collection) Each(fn func(i int, r *Record)) {
	for i, r := range c.records {
		fn(i, r)
	}
}

// Filter returns a new collection of the records fn keeps, in order.
func (c *Collection) Filter(fn func(r *Record) bool) *Collection {
	out := NewCollection()
	for _, r := range c.records {
		if fn(r) {
			out.Push(r)
		}
	}
	return out
}

// Data returns the derived read-only projection: each record's data, in
// order. Destroyed records project nil.
func (c *Collection) Data() []types.Fields {
	out := make([]types.Fields, len(c.records))
	for i, r := range c.records {
		out[i] = r.Data
	}
	return out
}

// SaveAll saves every record concurrently. It fails with the first
// encountered error. Saves that already committed stay committed; there is
// no cross-record rollback, and sibling saves are not cancelled.
func (c *Collection) SaveAll(ctx context.Context) error {
	var g errgroup.Group
	for _, r := range c.records {
		r := r
		g.Go(func() error {
			return r.Save(ctx)
		})
	}
	return g.Wait()
}
