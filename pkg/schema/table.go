package schema

import (
	"fmt"

	"github.com/go-openapi/inflect"
)

// Index is a secondary-index declaration carried into DDL generation.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is the frozen metadata for one entity class: table name, primary
// key, ordered columns and inheritance link. Built once by NewTable (or
// Extend) and immutable afterwards.
type Table struct {
	ClassName string
	Name      string
	PKName    string
	Columns   []*Column
	Indexes   []Index
	Parent    *Table

	byName map[string]*Column
}

// TableOption adjusts table construction.
type TableOption func(*Table)

// WithTableName overrides the underscore-derived table name.
func WithTableName(name string) TableOption {
	return func(t *Table) { t.Name = name }
}

// WithPrimaryKey overrides the conventional primary-key column name.
func WithPrimaryKey(name string) TableOption {
	return func(t *Table) { t.PKName = name }
}

// WithIndex declares a secondary index over the named columns.
func WithIndex(name string, unique bool, columns ...string) TableOption {
	return func(t *Table) {
		t.Indexes = append(t.Indexes, Index{Name: name, Columns: columns, Unique: unique})
	}
}

// NewTable builds table metadata for className. The table name derives from
// the mixed-case class name by underscore convention and the primary key is
// "id" unless overridden. Declaring the same column twice is an error.
func NewTable(className string, cols []*Column, opts ...TableOption) (*Table, error) {
	t := &Table{
		ClassName: className,
		Name:      inflect.Underscore(className),
		PKName:    "id",
		byName:    make(map[string]*Column),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, col := range cols {
		if _, dup := t.byName[col.Name]; dup {
			return nil, fmt.Errorf("schema: table %s declares column %s twice", t.Name, col.Name)
		}
		t.Columns = append(t.Columns, col)
		t.byName[col.Name] = col
	}
	return t, nil
}

// MustTable is NewTable for declaration-time metadata; it panics on a
// duplicate column, which is a programming error.
func MustTable(className string, cols []*Column, opts ...TableOption) *Table {
	t, err := NewTable(className, cols, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Extend builds subclass metadata in the table-per-subclass model. Parent
// columns precede subclass columns; a re-declared column shadows the
// parent's at its original position. A duplicate within cols itself is
// still an error.
func Extend(parent *Table, className string, cols []*Column, opts ...TableOption) (*Table, error) {
	t := &Table{
		ClassName: className,
		Name:      inflect.Underscore(className),
		PKName:    parent.PKName,
		Parent:    parent,
		byName:    make(map[string]*Column),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, col := range parent.Columns {
		dup := col.clone()
		t.Columns = append(t.Columns, dup)
		t.byName[dup.Name] = dup
	}
	seen := make(map[string]bool)
	for _, col := range cols {
		if seen[col.Name] {
			return nil, fmt.Errorf("schema: table %s declares column %s twice", t.Name, col.Name)
		}
		seen[col.Name] = true
		if _, inherited := t.byName[col.Name]; inherited {
			// subclass declaration wins, parent position kept
			for i, existing := range t.Columns {
				if existing.Name == col.Name {
					t.Columns[i] = col
					break
				}
			}
			t.byName[col.Name] = col
			continue
		}
		t.Columns = append(t.Columns, col)
		t.byName[col.Name] = col
	}
	return t, nil
}

// MustExtend is Extend, panicking on error.
func MustExtend(parent *Table, className string, cols []*Column, opts ...TableOption) *Table {
	t, err := Extend(parent, className, cols, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Column returns the descriptor for name, or nil.
func (t *Table) Column(name string) *Column {
	return t.byName[name]
}

// HasColumn reports whether name is declared.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// UniqueColumns returns the alternate-ID columns, in declaration order.
func (t *Table) UniqueColumns() []*Column {
	var out []*Column
	for _, col := range t.Columns {
		if col.Unique {
			out = append(out, col)
		}
	}
	return out
}

// References returns the foreign-key columns, in declaration order.
func (t *Table) References() []*Column {
	var out []*Column
	for _, col := range t.Columns {
		if col.Kind == KindReference {
			out = append(out, col)
		}
	}
	return out
}

// ColumnNames returns declared column names in order, primary key excluded.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}
