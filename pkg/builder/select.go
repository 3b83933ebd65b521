package builder

import (
	"fmt"
	"strings"

	"stoqlib/pkg/schema"
)

// Direction orders a sort column.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type orderBy struct {
	column    string
	direction Direction
}

// JoinKind is a SQL join flavor.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
)

type join struct {
	kind  JoinKind
	table string
	on    string
}

// SelectQuery builds a SELECT statement for one table.
type SelectQuery struct {
	table      *schema.Table
	columns    []string
	joins      []join
	conditions []Condition
	orders     []orderBy
	limit      int
	offset     int
	distinct   bool
	forUpdate  bool
}

// Select starts a query against table. With no Columns call it selects every
// column the table declares, primary key first.
func Select(table *schema.Table) *SelectQuery {
	return &SelectQuery{table: table, limit: -1, offset: -1}
}

// Columns restricts the select list.
func (q *SelectQuery) Columns(names ...string) *SelectQuery {
	q.columns = append(q.columns, names...)
	return q
}

// Join adds a join of the given kind against table, with on as the raw
// join predicate, qualified column names quoted by the caller.
func (q *SelectQuery) Join(kind JoinKind, table, on string) *SelectQuery {
	q.joins = append(q.joins, join{kind: kind, table: table, on: on})
	return q
}

// InnerJoin adds an INNER JOIN.
func (q *SelectQuery) InnerJoin(table, on string) *SelectQuery {
	return q.Join(InnerJoin, table, on)
}

// LeftJoin adds a LEFT JOIN.
func (q *SelectQuery) LeftJoin(table, on string) *SelectQuery {
	return q.Join(LeftJoin, table, on)
}

// RightJoin adds a RIGHT JOIN.
func (q *SelectQuery) RightJoin(table, on string) *SelectQuery {
	return q.Join(RightJoin, table, on)
}

// Where appends conditions, joined with AND.
func (q *SelectQuery) Where(conditions ...Condition) *SelectQuery {
	q.conditions = append(q.conditions, conditions...)
	return q
}

// OrderBy appends a sort column.
func (q *SelectQuery) OrderBy(column string, direction Direction) *SelectQuery {
	q.orders = append(q.orders, orderBy{column: column, direction: direction})
	return q
}

// Limit caps the result count.
func (q *SelectQuery) Limit(n int) *SelectQuery {
	q.limit = n
	return q
}

// Offset skips the first n rows.
func (q *SelectQuery) Offset(n int) *SelectQuery {
	q.offset = n
	return q
}

// Distinct adds DISTINCT.
func (q *SelectQuery) Distinct() *SelectQuery {
	q.distinct = true
	return q
}

// ForUpdate adds FOR UPDATE row locking.
func (q *SelectQuery) ForUpdate() *SelectQuery {
	q.forUpdate = true
	return q
}

// ToSQL renders the statement and its positional arguments.
func (q *SelectQuery) ToSQL() (string, []any, error) {
	cols := q.columns
	if len(cols) == 0 {
		cols = append([]string{q.table.PKName}, q.table.ColumnNames()...)
	}
	for _, c := range cols {
		// qualified names reach past this table; joins vouch for them
		if strings.Contains(c, ".") {
			continue
		}
		if c != q.table.PKName && !q.table.HasColumn(c) {
			return "", nil, fmt.Errorf("table %s has no column %q", q.table.Name, c)
		}
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		// joined selects qualify base columns so names stay unambiguous
		if len(q.joins) > 0 && !strings.Contains(c, ".") {
			c = q.table.Name + "." + c
		}
		quoted[i] = quoteIdent(c)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(q.table.Name))
	for _, j := range q.joins {
		fmt.Fprintf(&b, " %s %s ON %s", j.kind, quoteIdent(j.table), j.on)
	}

	var args []any
	if len(q.conditions) > 0 {
		wb := NewWhereBuilder()
		for _, c := range q.conditions {
			wb.Add(c)
		}
		whereSQL, whereArgs, err := wb.Build()
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" ")
		b.WriteString(whereSQL)
		args = whereArgs
	}

	if len(q.orders) > 0 {
		parts := make([]string, len(q.orders))
		for i, o := range q.orders {
			parts[i] = fmt.Sprintf("%s %s", quoteIdent(o.column), o.direction)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if q.limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	if q.offset >= 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.offset)
	}
	if q.forUpdate {
		b.WriteString(" FOR UPDATE")
	}
	return b.String(), args, nil
}
