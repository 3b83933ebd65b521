package builder

import (
	"fmt"
	"sort"
	"strings"

	"stoqlib/pkg/schema"
)

// UpdateQuery builds an UPDATE statement for one table.
type UpdateQuery struct {
	table      *schema.Table
	values     map[string]any
	conditions []Condition
}

// Update starts an update of table.
func Update(table *schema.Table) *UpdateQuery {
	return &UpdateQuery{table: table, values: make(map[string]any)}
}

// Set assigns one column.
func (q *UpdateQuery) Set(column string, value any) *UpdateQuery {
	q.values[column] = value
	return q
}

// SetMany assigns all columns from values.
func (q *UpdateQuery) SetMany(values map[string]any) *UpdateQuery {
	for k, v := range values {
		q.values[k] = v
	}
	return q
}

// Where appends conditions, joined with AND.
func (q *UpdateQuery) Where(conditions ...Condition) *UpdateQuery {
	q.conditions = append(q.conditions, conditions...)
	return q
}

// ToSQL renders the statement and its positional arguments. Unconditioned
// updates are rejected; a full-table update is never what the runtime wants.
func (q *UpdateQuery) ToSQL() (string, []any, error) {
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("update of %s has no values", q.table.Name)
	}
	if len(q.conditions) == 0 {
		return "", nil, fmt.Errorf("update of %s has no conditions", q.table.Name)
	}
	cols := make([]string, 0, len(q.values))
	for col := range q.values {
		if col != q.table.PKName && !q.table.HasColumn(col) {
			return "", nil, fmt.Errorf("table %s has no column %q", q.table.Name, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdent(col), i+1)
		args = append(args, q.values[col])
	}

	wb := NewWhereBuilderAt(len(cols) + 1)
	for _, c := range q.conditions {
		wb.Add(c)
	}
	whereSQL, whereArgs, err := wb.Build()
	if err != nil {
		return "", nil, err
	}
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %s SET %s %s",
		quoteIdent(q.table.Name), strings.Join(sets, ", "), whereSQL)
	return sql, args, nil
}
