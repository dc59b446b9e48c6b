package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dynarec/dynarec/internal/config"
	dynerrors "github.com/dynarec/dynarec/internal/errors"
	"github.com/dynarec/dynarec/pkg/types"
)

// SQLite implements Store on a single SQLite database file.
type SQLite struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	path   string
	mu     sync.Mutex // Write-only lock (reads don't need this)
	closed atomic.Bool
}

// checkOpen rejects operations on a closed store.
func (s *SQLite) checkOpen() error {
	if s.closed.Load() {
		return dynerrors.New(dynerrors.ErrCategoryStore, dynerrors.CodeStoreClosed, "store is closed")
	}
	return nil
}

// Open opens (creating if needed) a SQLite-backed document store.
func Open(cfg config.StoreConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("store: failed to create data directory: %w", err)
	}

	busyMS := int(cfg.BusyTimeout / time.Millisecond)
	if busyMS <= 0 {
		busyMS = 5000
	}
	readPool := cfg.ReadPoolSize
	if readPool < 1 {
		readPool = 4
	}

	// Write connection: single writer with WAL mode. file: URIs so the
	// driver honors query parameters like mode=ro.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d", cfg.Path, busyMS))
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db, path: cfg.Path}

	// Initialize schema on the write connection; this also materializes
	// the database file before the read-only pool opens it.
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
	}

	// Read connection pool: concurrent readers via read-only mode
	readDB, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&mode=ro", cfg.Path, busyMS))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(readPool)
	readDB.SetMaxIdleConns(readPool)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	s.readDB = readDB
	return s, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLite) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// FindOne returns the first matching document in insertion order, or nil.
func (s *SQLite) FindOne(ctx context.Context, collection string, filter types.Fields) (*Document, error) {
	docs, err := s.findDocs(ctx, s.readDB, collection, filter, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Find returns all matching documents ordered and limited per opts.
func (s *SQLite) Find(ctx context.Context, collection string, filter types.Fields, opts FindOptions) ([]*Document, error) {
	return s.findDocs(ctx, s.readDB, collection, filter, opts)
}

// findDocs scans a collection, decoding and filtering documents in Go.
// Payloads are opaque compressed blobs, so field predicates cannot be pushed
// into SQL; the scan order carries the seq ordering and field sorts are
// applied after collection.
func (s *SQLite) findDocs(ctx context.Context, q *sql.DB, collection string, filter types.Fields, opts FindOptions) ([]*Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := "SELECT seq, doc_id, payload, checksum FROM documents WHERE collection = ?"
	args := []any{collection}

	if filter != nil {
		if id, ok := filter[IDField].(string); ok {
			query += " AND doc_id = ?"
			args = append(args, id)
		}
	}

	seqDesc := opts.Sort != nil && opts.Sort.Field == "" && opts.Sort.Desc
	if seqDesc {
		query += " ORDER BY seq DESC"
	} else {
		query += " ORDER BY seq ASC"
	}

	fieldSort := opts.Sort != nil && opts.Sort.Field != ""

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var (
			seq      int64
			docID    string
			payload  []byte
			checksum int64
		)
		if err := rows.Scan(&seq, &docID, &payload, &checksum); err != nil {
			return nil, fmt.Errorf("store: failed to scan document: %w", err)
		}

		fields, err := decodePayload(payload, checksum)
		if err != nil {
			return nil, err
		}

		doc := &Document{ID: docID, Seq: seq, Fields: fields}
		if filter != nil && !matches(doc, filter) {
			continue
		}
		docs = append(docs, doc)

		// Seq-ordered scans can stop at the limit; field sorts need the
		// full match set first.
		if !fieldSort && opts.Limit > 0 && len(docs) >= opts.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating collection %s: %w", collection, err)
	}

	if fieldSort {
		sortByField(docs, opts.Sort.Field, opts.Sort.Desc)
		if opts.Limit > 0 && len(docs) > opts.Limit {
			docs = docs[:opts.Limit]
		}
	}

	return docs, nil
}

// InsertOne stores a new document with a fresh identity.
func (s *SQLite) InsertOne(ctx context.Context, collection string, fields types.Fields) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(ctx, collection, fields)
}

// insertLocked inserts a document (must be called with the write lock held).
func (s *SQLite) insertLocked(ctx context.Context, collection string, fields types.Fields) (*Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stored := fields.Clone().Normalize()
	payload, checksum, err := encodePayload(stored)
	if err != nil {
		return nil, err
	}

	docID := uuid.New().String()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (doc_id, collection, payload, checksum) VALUES (?, ?, ?, ?)",
		docID, collection, payload, checksum,
	)
	if err != nil {
		return nil, fmt.Errorf("store: failed to insert document: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: failed to read insert sequence: %w", err)
	}

	return &Document{ID: docID, Seq: seq, Fields: stored}, nil
}

// UpdateOne replaces the first matching document's fields.
func (s *SQLite) UpdateOne(ctx context.Context, collection string, filter, fields types.Fields, upsert bool) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Match on the write connection so a preceding write in the same call
	// chain is always visible.
	existing, err := s.findDocs(ctx, s.db, collection, filter, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}

	if len(existing) == 0 {
		if !upsert {
			return nil, nil
		}
		return s.insertLocked(ctx, collection, fields)
	}

	target := existing[0]
	stored := fields.Clone().Normalize()
	payload, checksum, err := encodePayload(stored)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE documents SET payload = ?, checksum = ? WHERE doc_id = ?",
		payload, checksum, target.ID,
	); err != nil {
		return nil, fmt.Errorf("store: failed to update document %s: %w", target.ID, err)
	}

	return &Document{ID: target.ID, Seq: target.Seq, Fields: stored}, nil
}

// DeleteOne removes the first matching document.
func (s *SQLite) DeleteOne(ctx context.Context, collection string, filter types.Fields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.findDocs(ctx, s.db, collection, filter, FindOptions{Limit: 1})
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE doc_id = ?", existing[0].ID)
	if err != nil {
		return false, fmt.Errorf("store: failed to delete document %s: %w", existing[0].ID, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// IncrementCounter atomically increments a sequence counter and returns the
// new value, creating the counter row on first use.
func (s *SQLite) IncrementCounter(ctx context.Context, tableSlug, columnLabel string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: failed to begin counter transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO counters (table_slug, column_label, value) VALUES (?, ?, 1)
		 ON CONFLICT(table_slug, column_label) DO UPDATE SET value = value + 1`,
		tableSlug, columnLabel,
	); err != nil {
		return 0, fmt.Errorf("store: failed to increment counter %s.%s: %w", tableSlug, columnLabel, err)
	}

	var value int64
	if err := tx.QueryRowContext(ctx,
		"SELECT value FROM counters WHERE table_slug = ? AND column_label = ?",
		tableSlug, columnLabel,
	).Scan(&value); err != nil {
		return 0, fmt.Errorf("store: failed to read counter %s.%s: %w", tableSlug, columnLabel, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: failed to commit counter increment: %w", err)
	}
	return value, nil
}

// DecrementCounter undoes one increment. The decrement applies only while
// the counter still sits at the value the failed save obtained; once a later
// increment has advanced past it, winding back would hand the advanced value
// out a second time, so the compensation is skipped and the sequence keeps
// a gap instead.
func (s *SQLite) DecrementCounter(ctx context.Context, tableSlug, columnLabel string, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE counters SET value = value - 1
		 WHERE table_slug = ? AND column_label = ? AND value = ? AND value > 0`,
		tableSlug, columnLabel, floor,
	); err != nil {
		return fmt.Errorf("store: failed to decrement counter %s.%s: %w", tableSlug, columnLabel, err)
	}
	return nil
}

// SeedCounter creates a zero-valued counter row if none exists.
func (s *SQLite) SeedCounter(ctx context.Context, tableSlug, columnLabel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO counters (table_slug, column_label, value) VALUES (?, ?, 0)",
		tableSlug, columnLabel,
	); err != nil {
		return fmt.Errorf("store: failed to seed counter %s.%s: %w", tableSlug, columnLabel, err)
	}
	return nil
}

// Counters returns all sequence values tracked for a table.
func (s *SQLite) Counters(ctx context.Context, tableSlug string) (map[string]int64, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.readDB.QueryContext(ctx,
		"SELECT column_label, value FROM counters WHERE table_slug = ?",
		tableSlug,
	)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query counters for %s: %w", tableSlug, err)
	}
	defer rows.Close()

	sequences := make(map[string]int64)
	for rows.Next() {
		var (
			label string
			value int64
		)
		if err := rows.Scan(&label, &value); err != nil {
			return nil, fmt.Errorf("store: failed to scan counter: %w", err)
		}
		sequences[label] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating counters: %w", err)
	}
	return sequences, nil
}

// Close closes the store's database connections. Further operations fail
// with a store-closed error; Close itself is idempotent.
func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	// Close read connection first, then write connection
	if err := s.readDB.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
