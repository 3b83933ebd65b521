// Package builder renders SQL fragments from table metadata. The entity
// runtime composes these instead of concatenating SQL by hand; placeholders
// are always positional.
package builder

import (
	"fmt"
	"strings"
)

// Operator is a SQL comparison operator.
type Operator string

const (
	OpEq      Operator = "="
	OpNeq     Operator = "<>"
	OpGt      Operator = ">"
	OpGte     Operator = ">="
	OpLt      Operator = "<"
	OpLte     Operator = "<="
	OpLike    Operator = "LIKE"
	OpILike   Operator = "ILIKE"
	OpIn      Operator = "IN"
	OpIsNull  Operator = "IS NULL"
	OpNotNull Operator = "IS NOT NULL"
)

// Connector joins a condition to the previous one.
type Connector string

const (
	ConnAnd Connector = "AND"
	ConnOr  Connector = "OR"
)

// Condition is one WHERE predicate, or a parenthesized group of them.
type Condition struct {
	Column string
	Op     Operator
	Value  any
	Values []any // for IN
	Conn   Connector
	Group  []Condition
}

// Eq matches column = value.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Op: OpEq, Value: value, Conn: ConnAnd}
}

// Neq matches column <> value.
func Neq(column string, value any) Condition {
	return Condition{Column: column, Op: OpNeq, Value: value, Conn: ConnAnd}
}

// Gt matches column > value.
func Gt(column string, value any) Condition {
	return Condition{Column: column, Op: OpGt, Value: value, Conn: ConnAnd}
}

// Lt matches column < value.
func Lt(column string, value any) Condition {
	return Condition{Column: column, Op: OpLt, Value: value, Conn: ConnAnd}
}

// Gte matches column >= value.
func Gte(column string, value any) Condition {
	return Condition{Column: column, Op: OpGte, Value: value, Conn: ConnAnd}
}

// Lte matches column <= value.
func Lte(column string, value any) Condition {
	return Condition{Column: column, Op: OpLte, Value: value, Conn: ConnAnd}
}

// Like matches column LIKE pattern.
func Like(column, pattern string) Condition {
	return Condition{Column: column, Op: OpLike, Value: pattern, Conn: ConnAnd}
}

// In matches column IN (values...).
func In(column string, values ...any) Condition {
	return Condition{Column: column, Op: OpIn, Values: values, Conn: ConnAnd}
}

// IsNull matches column IS NULL.
func IsNull(column string) Condition {
	return Condition{Column: column, Op: OpIsNull, Conn: ConnAnd}
}

// NotNull matches column IS NOT NULL.
func NotNull(column string) Condition {
	return Condition{Column: column, Op: OpNotNull, Conn: ConnAnd}
}

// And groups conditions with AND.
func And(conditions ...Condition) Condition {
	return Condition{Group: conditions, Conn: ConnAnd}
}

// Or attaches a group (or single condition) with OR.
func Or(conditions ...Condition) Condition {
	return Condition{Group: conditions, Conn: ConnOr}
}

// WhereBuilder accumulates conditions and renders the WHERE clause with
// parameter numbering starting at paramStart.
type WhereBuilder struct {
	conditions []Condition
	paramStart int
}

// NewWhereBuilder starts numbering parameters at 1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{paramStart: 1}
}

// NewWhereBuilderAt starts numbering parameters at paramStart.
func NewWhereBuilderAt(paramStart int) *WhereBuilder {
	return &WhereBuilder{paramStart: paramStart}
}

// Add appends a condition.
func (w *WhereBuilder) Add(condition Condition) {
	w.conditions = append(w.conditions, condition)
}

// Build renders "WHERE ..." and its arguments, or empty when no conditions
// were added.
func (w *WhereBuilder) Build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}
	sql, args, err := buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + sql, args, nil
}

func buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var parts []string
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		var sql string
		var condArgs []any
		var err error

		if len(cond.Group) > 0 {
			sql, condArgs, err = buildConditions(cond.Group, paramNum)
			if err != nil {
				return "", nil, err
			}
			sql = "(" + sql + ")"
		} else {
			sql, condArgs, err = buildCondition(cond, paramNum)
			if err != nil {
				return "", nil, err
			}
		}
		if i > 0 {
			parts = append(parts, string(cond.Conn))
		}
		parts = append(parts, sql)
		args = append(args, condArgs...)
		paramNum += len(condArgs)
	}
	return strings.Join(parts, " "), args, nil
}

func buildCondition(cond Condition, paramNum int) (string, []any, error) {
	if cond.Column == "" {
		return "", nil, fmt.Errorf("condition has no column")
	}
	col := quoteIdent(cond.Column)
	switch cond.Op {
	case OpIsNull, OpNotNull:
		return fmt.Sprintf("%s %s", col, cond.Op), nil, nil
	case OpIn:
		if len(cond.Values) == 0 {
			return "", nil, fmt.Errorf("IN condition on %s has no values", cond.Column)
		}
		placeholders := make([]string, len(cond.Values))
		for i := range cond.Values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")), cond.Values, nil
	default:
		return fmt.Sprintf("%s %s $%d", col, cond.Op, paramNum), []any{cond.Value}, nil
	}
}

// quoteIdent double-quotes an identifier, escaping embedded quotes. A
// qualified name quotes each segment.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
