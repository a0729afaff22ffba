// Package postgres provides PostgreSQL implementations of the interfaces in
// internal/store, plus the embedded goose migrations that define the schema.
// Statements run through store.DBTX so callers may pass a *sql.DB or *sql.Tx.
package postgres
