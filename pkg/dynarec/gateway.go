// Package dynarec provides an ActiveRecord-style data-access layer over a
// schemaless document store: schema-validated records, bulk collections,
// and auto-incrementing counters.
package dynarec

import (
	"context"
	"sort"
	"sync"

	dynerrors "github.com/dynarec/dynarec/internal/errors"
	"github.com/dynarec/dynarec/internal/schema"
	"github.com/dynarec/dynarec/internal/store"
	"github.com/dynarec/dynarec/internal/validate"
	"github.com/dynarec/dynarec/pkg/types"
)

// SortOrder selects a Where result ordering. Nil means store-native
// (insertion) order.
type SortOrder interface {
	isSortOrder()
}

// ByField orders ascending by a field name (stable sort).
type ByField string

func (ByField) isSortOrder() {}

// ByFunc orders by a custom less function over record data.
type ByFunc func(a, b types.Fields) bool

func (ByFunc) isSortOrder() {}

// session is a gateway's resolved per-table state: the shared store
// connection, the registry and validator built over it, and the table's
// descriptor.
type session struct {
	store     store.Store
	registry  *schema.Registry
	validator *validate.Gateway
	desc      *types.TableDescriptor
}

// TableGateway is a per-table session over the store. Construction is
// cheap; the table's existence is resolved on first use into a shared
// readiness handle every operation awaits.
type TableGateway struct {
	tableSlug string
	opts      Options

	mu   sync.Mutex
	sess *session
	err  error
}

// New creates a gateway for one logical table. The store is not touched
// until the first operation.
func New(tableSlug string, opts Options) *TableGateway {
	return &TableGateway{tableSlug: tableSlug, opts: opts}
}

// await resolves the readiness handle. Only definitive outcomes are
// memoized: a resolved session, or table-not-found. Transient failures
// (store open errors, a cancelled first-caller context) surface to that
// caller and the next operation retries resolution.
func (g *TableGateway) await(ctx context.Context) (*session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sess != nil || g.err != nil {
		return g.sess, g.err
	}

	sess, err := g.resolve(ctx)
	if err != nil {
		if dynerrors.GetCode(err) == dynerrors.CodeTableNotFound {
			g.err = err
		}
		return nil, err
	}
	g.sess = sess
	return sess, nil
}

func (g *TableGateway) resolve(ctx context.Context) (*session, error) {
	s, err := store.Open(g.opts.storeConfig())
	if err != nil {
		return nil, dynerrors.NewStoreError("failed to open store", err)
	}

	registry := schema.NewRegistry(s)
	desc, err := registry.Read(ctx, g.tableSlug)
	if err != nil {
		s.Close()
		return nil, err
	}
	if !desc.Exists() {
		s.Close()
		return nil, dynerrors.NewTableNotFound(g.tableSlug)
	}

	return &session{
		store:     s,
		registry:  registry,
		validator: validate.NewGateway(registry),
		desc:      desc,
	}, nil
}

// NewRecord constructs a NEW record bound to this table. The fields become
// the record's live data view.
func (g *TableGateway) NewRecord(fields types.Fields) *Record {
	if fields == nil {
		fields = types.Fields{}
	}
	return &Record{Data: fields, gw: g}
}

// hydrate builds a SAVED record from a stored document: the committed
// snapshot is pre-populated even though Save has never been called on it.
func (g *TableGateway) hydrate(doc *store.Document) *Record {
	return &Record{
		Data:     doc.Fields.Clone(),
		gw:       g,
		original: doc.Fields.Clone(),
		identity: doc.ID,
	}
}

// Schema returns the table's resolved descriptor.
func (g *TableGateway) Schema(ctx context.Context) (*types.TableDescriptor, error) {
	sess, err := g.await(ctx)
	if err != nil {
		return nil, err
	}
	return sess.desc, nil
}

// FindBy returns the first record matching query in insertion order, or
// nil when nothing matches.
func (g *TableGateway) FindBy(ctx context.Context, query types.Fields) (*Record, error) {
	sess, err := g.await(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := sess.store.FindOne(ctx, g.tableSlug, query)
	if err != nil {
		return nil, dynerrors.NewStoreError("findBy failed on table "+g.tableSlug, err)
	}
	if doc == nil {
		return nil, nil
	}
	return g.hydrate(doc), nil
}

// Where returns every record matching query as a collection, ordered per
// order (nil keeps store-native order).
func (g *TableGateway) Where(ctx context.Context, query types.Fields, order SortOrder) (*Collection, error) {
	sess, err := g.await(ctx)
	if err != nil {
		return nil, err
	}

	opts := store.FindOptions{}
	var byFunc ByFunc
	switch o := order.(type) {
	case nil:
	case ByField:
		opts.Sort = &store.Sort{Field: string(o)}
	case ByFunc:
		byFunc = o
	}

	docs, err := sess.store.Find(ctx, g.tableSlug, query, opts)
	if err != nil {
		return nil, dynerrors.NewStoreError("where failed on table "+g.tableSlug, err)
	}

	col := NewCollection()
	for _, doc := range docs {
		col.Push(g.hydrate(doc))
	}
	if byFunc != nil {
		sort.SliceStable(col.records, func(i, j int) bool {
			return byFunc(col.records[i].Data, col.records[j].Data)
		})
	}
	return col, nil
}

// All returns every record of the table in insertion order.
func (g *TableGateway) All(ctx context.Context) (*Collection, error) {
	return g.Where(ctx, nil, nil)
}

// First returns the oldest record, or nil on an empty table.
func (g *TableGateway) First(ctx context.Context) (*Record, error) {
	return g.firstOne(ctx, false)
}

// FirstN returns the n oldest records, oldest first. The result is a
// possibly empty collection, never nil.
func (g *TableGateway) FirstN(ctx context.Context, n int) (*Collection, error) {
	return g.firstMany(ctx, n, false)
}

// Last returns the newest record, or nil on an empty table.
func (g *TableGateway) Last(ctx context.Context) (*Record, error) {
	return g.firstOne(ctx, true)
}

// LastN returns the n newest records in reverse insertion order. The
// result is a possibly empty collection, never nil.
func (g *TableGateway) LastN(ctx context.Context, n int) (*Collection, error) {
	return g.firstMany(ctx, n, true)
}

func (g *TableGateway) firstOne(ctx context.Context, reverse bool) (*Record, error) {
	col, err := g.firstMany(ctx, 1, reverse)
	if err != nil {
		return nil, err
	}
	if col.Len() == 0 {
		return nil, nil
	}
	return col.At(0), nil
}

func (g *TableGateway) firstMany(ctx context.Context, n int, reverse bool) (*Collection, error) {
	sess, err := g.await(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return NewCollection(), nil
	}

	opts := store.FindOptions{Limit: n}
	if reverse {
		opts.Sort = &store.Sort{Desc: true}
	}

	docs, err := sess.store.Find(ctx, g.tableSlug, nil, opts)
	if err != nil {
		return nil, dynerrors.NewStoreError("scan failed on table "+g.tableSlug, err)
	}

	col := NewCollection()
	for _, doc := range docs {
		col.Push(g.hydrate(doc))
	}
	return col, nil
}

// CloseConnection releases the underlying store connection. Later
// operations through this gateway fail with a store-closed error.
func (g *TableGateway) CloseConnection() error {
	sess, err := g.await(context.Background())
	if err != nil {
		return nil
	}
	return sess.store.Close()
}

// CreateTable registers a table descriptor (seeding sequence counters for
// its auto-incrementing columns) so gateways can resolve it.
func CreateTable(ctx context.Context, opts Options, desc *types.TableDescriptor) error {
	s, err := store.Open(opts.storeConfig())
	if err != nil {
		return dynerrors.NewStoreError("failed to open store", err)
	}
	defer s.Close()

	return schema.NewRegistry(s).Register(ctx, desc)
}
