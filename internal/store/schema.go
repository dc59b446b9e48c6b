package store

// SQL schema definitions for the document store database. The store is a
// single SQLite file holding every collection's documents plus the per-table
// sequence counters.

// CreateDocumentsTableSQL creates the documents table. Payloads are
// snappy-compressed JSON with a murmur3 checksum verified on read; seq is
// the store-native insertion order.
const CreateDocumentsTableSQL = `
CREATE TABLE IF NOT EXISTS documents (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_id TEXT NOT NULL UNIQUE,
    collection TEXT NOT NULL,
    payload BLOB NOT NULL,
    checksum INTEGER NOT NULL
)`

// CreateCountersTableSQL creates the sequence counters table. Values are
// monotonic non-negative integers, one row per (table, column).
const CreateCountersTableSQL = `
CREATE TABLE IF NOT EXISTS counters (
    table_slug TEXT NOT NULL,
    column_label TEXT NOT NULL,
    value INTEGER NOT NULL DEFAULT 0 CHECK (value >= 0),
    PRIMARY KEY (table_slug, column_label)
)`

// CreateDocumentsIndexesSQL creates indexes for collection scans.
var CreateDocumentsIndexesSQL = []string{
	// Index for per-collection scans in insertion order
	`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, seq)`,
}

// AllSchemaSQL returns all schema statements in execution order.
func AllSchemaSQL() []string {
	stmts := []string{
		CreateDocumentsTableSQL,
		CreateCountersTableSQL,
	}
	stmts = append(stmts, CreateDocumentsIndexesSQL...)
	return stmts
}
