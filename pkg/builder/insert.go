package builder

import (
	"fmt"
	"sort"
	"strings"

	"stoqlib/pkg/schema"
)

// InsertQuery builds an INSERT statement for one table. Values are supplied
// by column name and rendered in sorted order so generated SQL is stable.
type InsertQuery struct {
	table     *schema.Table
	values    map[string]any
	returning []string
}

// Insert starts an insert into table.
func Insert(table *schema.Table) *InsertQuery {
	return &InsertQuery{table: table, values: make(map[string]any)}
}

// Set assigns one column.
func (q *InsertQuery) Set(column string, value any) *InsertQuery {
	q.values[column] = value
	return q
}

// SetMany assigns all columns from values.
func (q *InsertQuery) SetMany(values map[string]any) *InsertQuery {
	for k, v := range values {
		q.values[k] = v
	}
	return q
}

// Returning adds a RETURNING clause.
func (q *InsertQuery) Returning(columns ...string) *InsertQuery {
	q.returning = append(q.returning, columns...)
	return q
}

// ToSQL renders the statement and its positional arguments.
func (q *InsertQuery) ToSQL() (string, []any, error) {
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("insert into %s has no values", q.table.Name)
	}
	cols := make([]string, 0, len(q.values))
	for col := range q.values {
		if col != q.table.PKName && !q.table.HasColumn(col) {
			return "", nil, fmt.Errorf("table %s has no column %q", q.table.Name, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = q.values[col]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(q.table.Name), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if len(q.returning) > 0 {
		ret := make([]string, len(q.returning))
		for i, col := range q.returning {
			ret[i] = quoteIdent(col)
		}
		b.WriteString(" RETURNING ")
		b.WriteString(strings.Join(ret, ", "))
	}
	return b.String(), args, nil
}
