package orm

import (
	"context"

	"stoqlib/pkg/builder"
	"stoqlib/pkg/database"
	"stoqlib/pkg/schema"
)

// Get returns the entity of className with the given primary key. The
// identity cache guarantees one instance per row per transaction; a
// concurrent getter blocks until the first finishes hydrating. A select
// miss is a NotFoundError.
func (t *Transaction) Get(ctx context.Context, className string, id int64) (*Record, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	tbl, err := t.table(className)
	if err != nil {
		return nil, err
	}
	key := cacheKey{table: tbl.Name, id: id}
	for {
		entry, reserved := t.cache.lookupOrReserve(key)
		if !reserved {
			rec := entry.wait()
			if rec == nil {
				// hydration was aborted, re-reserve
				continue
			}
			return rec, nil
		}
		rec, err := t.fetch(ctx, tbl, id)
		if err != nil {
			t.cache.abortPut(key)
			return nil, err
		}
		t.cache.finishPut(key, rec)
		return rec, nil
	}
}

// fetch selects every column of one row and builds a live record.
func (t *Transaction) fetch(ctx context.Context, tbl *schema.Table, id int64) (*Record, error) {
	q := builder.Select(tbl).Where(builder.Eq(tbl.PKName, id))
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	row, err := t.runner.QueryRow(ctx, sql, args...)
	if err != nil {
		if err == database.ErrNoRows {
			return nil, &NotFoundError{class: tbl.ClassName}
		}
		return nil, err
	}
	rec := &Record{
		tx:      t,
		table:   tbl,
		id:      id,
		state:   StateLive,
		pending: make(map[string]any),
	}
	rec.hydrate(row)
	return rec, nil
}

// install reuses or publishes a record for a fully selected row. Result-set
// hydration goes through here so iteration fills the identity cache, and a
// row already cached keeps its instance, refreshed when it was expired.
func (t *Transaction) install(tbl *schema.Table, row database.Row) (*Record, error) {
	id, err := asInt64(row[tbl.PKName])
	if err != nil {
		return nil, err
	}
	key := cacheKey{table: tbl.Name, id: id}
	for {
		entry, reserved := t.cache.lookupOrReserve(key)
		if !reserved {
			rec := entry.wait()
			if rec == nil {
				continue
			}
			rec.mu.Lock()
			if rec.state == StateExpired {
				rec.hydrate(row)
				rec.state = StateLive
			}
			rec.mu.Unlock()
			return rec, nil
		}
		rec := &Record{
			tx:      t,
			table:   tbl,
			id:      id,
			state:   StateLive,
			pending: make(map[string]any),
		}
		rec.hydrate(row)
		t.cache.finishPut(key, rec)
		return rec, nil
	}
}

// FindByUnique looks an entity up by an alternate-ID column. No match is a
// NotFoundError; more than one is a NotSingularError.
func (t *Transaction) FindByUnique(ctx context.Context, className, column string, value any) (*Record, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	tbl, err := t.table(className)
	if err != nil {
		return nil, err
	}
	col := tbl.Column(column)
	if col == nil {
		return nil, &UnknownColumnError{class: className, column: column}
	}
	q := builder.Select(tbl).Where(builder.Eq(column, value)).Limit(2)
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := t.runner.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, &NotFoundError{class: className}
	case 1:
		return t.install(tbl, rows[0])
	default:
		return nil, &NotSingularError{class: className}
	}
}
