package orm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stoqlib/pkg/database"
)

// expectation is one scripted backend round trip: the SQL must contain
// every fragment, and the canned result comes back.
type expectation struct {
	contains []string
	rows     []database.Row
	affected int64
	err      error
}

// fakeTx is a scripted database.TxRunner. Statements must arrive in the
// scripted order; leftovers fail the test.
type fakeTx struct {
	t          *testing.T
	script     []expectation
	pos        int
	executed   []string
	committed  bool
	rolledBack bool
}

func (f *fakeTx) expect(e expectation) { f.script = append(f.script, e) }

func (f *fakeTx) next(sql string) expectation {
	f.t.Helper()
	require.Less(f.t, f.pos, len(f.script), "unexpected statement: %s", sql)
	e := f.script[f.pos]
	f.pos++
	f.executed = append(f.executed, sql)
	for _, frag := range e.contains {
		require.Contains(f.t, sql, frag)
	}
	return e
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	e := f.next(sql)
	return e.affected, e.err
}

func (f *fakeTx) Query(_ context.Context, sql string, _ ...any) ([]database.Row, error) {
	e := f.next(sql)
	return e.rows, e.err
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	rows, err := f.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, database.ErrNoRows
	}
	return rows[0], nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

func (f *fakeTx) drained() {
	f.t.Helper()
	require.Equal(f.t, len(f.script), f.pos, "unconsumed expectations")
}

// fakeDB hands out one scripted transaction.
type fakeDB struct {
	tx *fakeTx
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	return f.tx.Exec(context.Background(), sql, args...)
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) ([]database.Row, error) {
	return f.tx.Query(context.Background(), sql, args...)
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) (database.Row, error) {
	return f.tx.QueryRow(context.Background(), sql, args...)
}

func (f *fakeDB) Begin(context.Context) (database.TxRunner, error) {
	return f.tx, nil
}
