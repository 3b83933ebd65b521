// Package database is the blocking backend driver stoqlib talks through:
// a thin layer over pgx that returns rows as column-name maps and reduces
// the error surface to integrity, transient and other.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Runner is the query surface shared by pooled connections and open
// transactions. The entity runtime and the migration driver depend only on
// this, so tests can substitute a scripted fake.
type Runner interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)
}

// TxRunner is an open backend transaction.
type TxRunner interface {
	Runner
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn and verifies the connection.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, mapError(fmt.Errorf("failed to ping database: %w", err))
	}
	return &DB{pool: pool}, nil
}

// NewDB wraps an existing pool.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// Close closes the pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return mapError(db.pool.Ping(ctx))
}

// Exec runs a statement and returns the affected row count.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// Query runs a query and collects all rows.
func (db *DB) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return collectRows(rows)
}

// QueryRow runs a query expected to produce one row; ErrNoRows on none.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) (Row, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// Begin opens a backend transaction.
func (db *DB) Begin(ctx context.Context) (TxRunner, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps an open pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// Query runs a query inside the transaction and collects all rows.
func (t *Tx) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return collectRows(rows)
}

// QueryRow runs a single-row query inside the transaction.
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) (Row, error) {
	rows, err := t.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// Commit commits the transaction, classifying deferred constraint errors.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished transaction
// is harmless.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return mapError(err)
	}
	return nil
}

func collectRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, mapError(err)
		}
		row := make(Row, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// TableExists reports whether a table is present in the current schema.
func TableExists(ctx context.Context, r Runner, name string) (bool, error) {
	row, err := r.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1) AS present",
		name)
	if err != nil {
		return false, err
	}
	present, _ := row["present"].(bool)
	return present, nil
}

// CreateTable runs a CREATE TABLE statement.
func CreateTable(ctx context.Context, r Runner, ddl string) error {
	_, err := r.Exec(ctx, ddl)
	return err
}

// DropTable drops a table, optionally cascading to dependents.
func DropTable(ctx context.Context, r Runner, name string, cascade bool) error {
	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(name))
	if cascade {
		stmt += " CASCADE"
	}
	_, err := r.Exec(ctx, stmt)
	return err
}

// CreateSequence creates a monotonic sequence if absent.
func CreateSequence(ctx context.Context, r Runner, name string) error {
	_, err := r.Exec(ctx, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s", quoteIdent(name)))
	return err
}

// NextSequenceValue returns the next value of a sequence.
func NextSequenceValue(ctx context.Context, r Runner, name string) (int64, error) {
	row, err := r.QueryRow(ctx, "SELECT nextval($1) AS value", name)
	if err != nil {
		return 0, err
	}
	value, _ := row["value"].(int64)
	return value, nil
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
