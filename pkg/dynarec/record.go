package dynarec

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	dynerrors "github.com/dynarec/dynarec/internal/errors"
	"github.com/dynarec/dynarec/internal/store"
	"github.com/dynarec/dynarec/internal/validate"
	"github.com/dynarec/dynarec/pkg/types"
)

// State is a record's position in its lifecycle.
type State int

const (
	// StateNew means the record has never been persisted.
	StateNew State = iota

	// StateSaved means the record is persisted; its last committed
	// snapshot is held internally alongside the live data.
	StateSaved

	// StateDestroyed is terminal: the record's row has been deleted.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSaved:
		return "SAVED"
	case StateDestroyed:
		return "DESTROYED"
	}
	return "UNKNOWN"
}

// Record is a single entity bound to one logical table row. Data is the
// live, mutable view; the store-assigned identity is held separately so
// schema validation never sees store-internal fields.
//
// Save and Destroy on the same Record are serialized in call order; see
// writeQueue. Concurrent mutation of Data itself is the caller's problem,
// as is concurrent mutation of the same logical row through a different
// Record instance (last writer wins at the store level).
type Record struct {
	// Data is the live field mapping. Nil once destroyed.
	Data types.Fields

	gw    *TableGateway
	queue writeQueue

	// original is the last-known-committed snapshot; nil means never
	// persisted. identity is the store-assigned primary key.
	original  types.Fields
	identity  string
	destroyed bool
}

// State returns the record's lifecycle state.
func (r *Record) State() State {
	switch {
	case r.destroyed:
		return StateDestroyed
	case r.original != nil:
		return StateSaved
	default:
		return StateNew
	}
}

// ID returns the store-assigned identity, empty until first save.
func (r *Record) ID() string {
	return r.identity
}

// Original returns a copy of the last committed snapshot, nil for a record
// that has never been saved.
func (r *Record) Original() types.Fields {
	return r.original.Clone()
}

// Validate checks Data against an explicit column list, independent of the
// table's registered schema.
func (r *Record) Validate(columns []types.Column) error {
	if r.destroyed {
		return dynerrors.NewAlreadyDestroyed(r.gw.tableSlug)
	}
	return validate.CompileColumns(columns, false)(r.Data)
}

// Save persists the record: a first save runs the insert protocol
// (sequence counters, validation, insert, identity capture); later saves
// validate and update the matching row in place. Saves on the same Record
// queue behind one another.
func (r *Record) Save(ctx context.Context) error {
	release, err := r.queue.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	if r.destroyed {
		return dynerrors.NewAlreadyDestroyed(r.gw.tableSlug)
	}

	sess, err := r.gw.await(ctx)
	if err != nil {
		return err
	}

	if r.original == nil {
		return r.insert(ctx, sess)
	}
	return r.update(ctx, sess)
}

// insert runs the save protocol for a never-persisted record.
func (r *Record) insert(ctx context.Context, sess *session) error {
	slug := r.gw.tableSlug
	r.Data.Normalize()

	// (a) fill every tracked sequence column; increments run concurrently
	// and must all land before validation.
	counters, err := sess.registry.Counters(ctx, slug)
	if err != nil {
		return err
	}
	tracked := make(map[string]struct{}, len(counters.Sequences))
	for label := range counters.Sequences {
		tracked[label] = struct{}{}
	}
	for _, label := range sess.desc.AutoIncrementColumns() {
		tracked[label] = struct{}{}
	}

	// No cross-cancellation between increments: a cancelled statement can
	// still have committed, and an increment that lands without entering
	// assigned would escape the unwind. Every goroutine runs to completion
	// so assigned holds every value actually obtained.
	var (
		mu       sync.Mutex
		assigned = make(map[string]int64, len(tracked))
		g        errgroup.Group
	)
	for label := range tracked {
		label := label
		g.Go(func() error {
			value, err := sess.registry.IncrementCounter(ctx, slug, label)
			if err != nil {
				return err
			}
			mu.Lock()
			assigned[label] = value
			r.Data[label] = value
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.unwindCounters(ctx, sess, assigned)
		return err
	}

	// (b) validate the full data view against the table schema.
	fn, err := sess.validator.Compile(ctx, slug)
	if err != nil {
		r.unwindCounters(ctx, sess, assigned)
		return err
	}
	if err := fn(r.Data); err != nil {
		r.unwindCounters(ctx, sess, assigned)
		return err
	}

	// (c) insert, (d) capture the store-assigned identity.
	doc, err := sess.store.InsertOne(ctx, slug, r.Data)
	if err != nil {
		r.unwindCounters(ctx, sess, assigned)
		return dynerrors.NewStoreError("failed to insert record into table "+slug, err)
	}
	r.identity = doc.ID

	// (e) the committed snapshot becomes the new baseline.
	r.original = r.Data.Clone()
	return nil
}

// update runs the save protocol for an already-persisted record. No
// counter logic runs on update.
func (r *Record) update(ctx context.Context, sess *session) error {
	slug := r.gw.tableSlug
	r.Data.Normalize()

	fn, err := sess.validator.Compile(ctx, slug)
	if err != nil {
		return err
	}
	if err := fn(r.Data); err != nil {
		return err
	}

	doc, err := sess.store.UpdateOne(ctx, slug, r.matchFilter(), r.Data, false)
	if err != nil {
		return dynerrors.NewStoreError("failed to update record in table "+slug, err)
	}
	if doc == nil {
		return dynerrors.New(dynerrors.ErrCategoryStore, dynerrors.CodeStoreFailure,
			"no stored row matches this record's last committed snapshot")
	}

	r.identity = doc.ID
	r.original = r.Data.Clone()
	return nil
}

// Destroy deletes the record's row and retires the instance. Destroy on a
// never-saved record fails; any operation after Destroy fails.
func (r *Record) Destroy(ctx context.Context) error {
	release, err := r.queue.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	if r.destroyed {
		return dynerrors.NewAlreadyDestroyed(r.gw.tableSlug)
	}
	if r.original == nil {
		return dynerrors.NewNotPersisted(r.gw.tableSlug)
	}

	sess, err := r.gw.await(ctx)
	if err != nil {
		return err
	}

	if _, err := sess.store.DeleteOne(ctx, r.gw.tableSlug, r.matchFilter()); err != nil {
		return dynerrors.NewStoreError("failed to delete record from table "+r.gw.tableSlug, err)
	}

	r.Data = nil
	r.original = nil
	r.destroyed = true
	return nil
}

// matchFilter matches this record's stored row: by identity when the store
// assigned one, else by the last committed snapshot.
func (r *Record) matchFilter() types.Fields {
	if r.identity != "" {
		return types.Fields{store.IDField: r.identity}
	}
	return r.original
}

// unwindCounters best-effort decrements every counter incremented by a
// failed insert and drops the assigned values from Data again. Its own
// failures are logged and swallowed so the original error is the one that
// surfaces; a crash in this window leaks the incremented sequence values.
func (r *Record) unwindCounters(ctx context.Context, sess *session, assigned map[string]int64) {
	slug := r.gw.tableSlug
	ctx = context.WithoutCancel(ctx)
	for label, value := range assigned {
		delete(r.Data, label)
		if err := sess.registry.DecrementCounter(ctx, slug, label, value); err != nil {
			log.Printf("[WARN] record: failed to unwind counter %s.%s after failed save: %v", slug, label, err)
		}
	}
}
