package orm

import (
	"context"
	"fmt"

	"stoqlib/pkg/builder"
	"stoqlib/pkg/schema"
)

// defaultBatchSize is how many rows Each pulls per round trip.
const defaultBatchSize = 100

// Query is a lazy entity selection. Nothing hits the backend until All,
// One, First, Count or Each; hydrated rows land in the identity cache.
type Query struct {
	tx         *Transaction
	tbl        *schema.Table
	err        error
	conditions []builder.Condition
	joins      []queryJoin
	orders     []order
	limit      int
	offset     int
	distinct   bool
	batchSize  int
}

type order struct {
	column    string
	direction builder.Direction
}

type queryJoin struct {
	kind  builder.JoinKind
	table string
	on    string
}

// Select starts a query over className.
func (t *Transaction) Select(className string) *Query {
	q := &Query{tx: t, limit: -1, offset: -1, batchSize: defaultBatchSize}
	if t.closed {
		q.err = ErrTxClosed
		return q
	}
	q.tbl, q.err = t.table(className)
	return q
}

// Where appends conditions, joined with AND.
func (q *Query) Where(conditions ...builder.Condition) *Query {
	q.conditions = append(q.conditions, conditions...)
	return q
}

// Join adds an INNER JOIN against className, matching its column against
// baseColumn of the queried class. Conditions may then name joined columns
// qualified as table.column.
func (q *Query) Join(className, column, baseColumn string) *Query {
	return q.join(builder.InnerJoin, className, column, baseColumn)
}

// LeftJoin adds a LEFT JOIN against className.
func (q *Query) LeftJoin(className, column, baseColumn string) *Query {
	return q.join(builder.LeftJoin, className, column, baseColumn)
}

func (q *Query) join(kind builder.JoinKind, className, column, baseColumn string) *Query {
	if q.err != nil {
		return q
	}
	tbl, err := q.tx.table(className)
	if err != nil {
		q.err = err
		return q
	}
	if !tbl.HasColumn(column) && column != tbl.PKName {
		q.err = &UnknownColumnError{class: className, column: column}
		return q
	}
	if !q.tbl.HasColumn(baseColumn) && baseColumn != q.tbl.PKName {
		q.err = &UnknownColumnError{class: q.tbl.ClassName, column: baseColumn}
		return q
	}
	q.joins = append(q.joins, queryJoin{
		kind:  kind,
		table: tbl.Name,
		on:    fmt.Sprintf(`"%s"."%s" = "%s"."%s"`, tbl.Name, column, q.tbl.Name, baseColumn),
	})
	return q
}

// OrderBy appends a sort column.
func (q *Query) OrderBy(column string, direction builder.Direction) *Query {
	q.orders = append(q.orders, order{column: column, direction: direction})
	return q
}

// Limit caps the result count.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// Distinct de-duplicates rows.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// BatchSize sets how many rows Each fetches per round trip.
func (q *Query) BatchSize(n int) *Query {
	if n > 0 {
		q.batchSize = n
	}
	return q
}

func (q *Query) build(limit, offset int) (string, []any, error) {
	sel := builder.Select(q.tbl).Where(q.conditions...)
	for _, j := range q.joins {
		sel.Join(j.kind, j.table, j.on)
	}
	for _, o := range q.orders {
		sel.OrderBy(o.column, o.direction)
	}
	if q.distinct {
		sel.Distinct()
	}
	if limit >= 0 {
		sel.Limit(limit)
	}
	if offset >= 0 {
		sel.Offset(offset)
	}
	return sel.ToSQL()
}

// All fetches every matching row and returns the hydrated entities.
func (q *Query) All(ctx context.Context) ([]*Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	sql, args, err := q.build(q.limit, q.offset)
	if err != nil {
		return nil, err
	}
	rows, err := q.tx.runner.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		rec, err := q.tx.install(q.tbl, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Each iterates the result set in batches, calling fn for every entity.
// Stopping early is fn returning a non-nil error, which Each propagates.
func (q *Query) Each(ctx context.Context, fn func(*Record) error) error {
	if q.err != nil {
		return q.err
	}
	remaining := q.limit
	offset := q.offset
	if offset < 0 {
		offset = 0
	}
	for {
		batch := q.batchSize
		if remaining >= 0 && remaining < batch {
			batch = remaining
		}
		if batch == 0 {
			return nil
		}
		sql, args, err := q.build(batch, offset)
		if err != nil {
			return err
		}
		rows, err := q.tx.runner.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		for _, row := range rows {
			rec, err := q.tx.install(q.tbl, row)
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(rows) < batch {
			return nil
		}
		offset += len(rows)
		if remaining >= 0 {
			remaining -= len(rows)
		}
	}
}

// One returns the single matching entity. No match is a NotFoundError;
// more than one is a NotSingularError.
func (q *Query) One(ctx context.Context) (*Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	sql, args, err := q.build(2, q.offset)
	if err != nil {
		return nil, err
	}
	rows, err := q.tx.runner.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, &NotFoundError{class: q.tbl.ClassName}
	case 1:
		return q.tx.install(q.tbl, rows[0])
	default:
		return nil, &NotSingularError{class: q.tbl.ClassName}
	}
}

// First returns the first matching entity, NotFoundError on none.
func (q *Query) First(ctx context.Context) (*Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	sql, args, err := q.build(1, q.offset)
	if err != nil {
		return nil, err
	}
	rows, err := q.tx.runner.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{class: q.tbl.ClassName}
	}
	return q.tx.install(q.tbl, rows[0])
}

// Count returns how many rows match.
func (q *Query) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	wb := builder.NewWhereBuilder()
	for _, c := range q.conditions {
		wb.Add(c)
	}
	whereSQL, args, err := wb.Build()
	if err != nil {
		return 0, err
	}
	sql := `SELECT count(*) AS n FROM "` + q.tbl.Name + `"`
	for _, j := range q.joins {
		sql += fmt.Sprintf(` %s "%s" ON %s`, j.kind, j.table, j.on)
	}
	if whereSQL != "" {
		sql += " " + whereSQL
	}
	row, err := q.tx.runner.QueryRow(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return asInt64(row["n"])
}
