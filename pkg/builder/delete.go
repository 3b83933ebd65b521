package builder

import (
	"fmt"

	"stoqlib/pkg/schema"
)

// DeleteQuery builds a DELETE statement for one table.
type DeleteQuery struct {
	table      *schema.Table
	conditions []Condition
}

// Delete starts a delete from table.
func Delete(table *schema.Table) *DeleteQuery {
	return &DeleteQuery{table: table}
}

// Where appends conditions, joined with AND.
func (q *DeleteQuery) Where(conditions ...Condition) *DeleteQuery {
	q.conditions = append(q.conditions, conditions...)
	return q
}

// ToSQL renders the statement and its positional arguments. Unconditioned
// deletes are rejected.
func (q *DeleteQuery) ToSQL() (string, []any, error) {
	if len(q.conditions) == 0 {
		return "", nil, fmt.Errorf("delete from %s has no conditions", q.table.Name)
	}
	wb := NewWhereBuilder()
	for _, c := range q.conditions {
		wb.Add(c)
	}
	whereSQL, args, err := wb.Build()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s %s", quoteIdent(q.table.Name), whereSQL), args, nil
}
