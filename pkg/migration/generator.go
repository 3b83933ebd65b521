package migration

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// CreateTableSQL renders the CREATE TABLE statement for one table. Foreign
// keys are not declared inline; ForeignKeySQL emits them afterwards so
// creation order never matters.
func CreateTableSQL(t *schema.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(t.Name))
	fmt.Fprintf(&b, "    %s bigserial PRIMARY KEY", quoteIdent(t.PKName))
	for _, col := range t.Columns {
		b.WriteString(",\n    ")
		b.WriteString(columnDDL(col))
	}
	b.WriteString("\n)")
	return b.String()
}

func columnDDL(col *schema.Column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", quoteIdent(col.Name), col.SQLType())
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if col.HasDef {
		fmt.Fprintf(&b, " DEFAULT %s", sqlLiteral(col.DefaultV))
	}
	return b.String()
}

// ForeignKeySQL renders the ALTER TABLE statements adding every foreign-key
// constraint of t, with the declared delete policy.
func ForeignKeySQL(t *schema.Table, reg *registry.Registry) ([]string, error) {
	var out []string
	for _, col := range t.References() {
		target, err := reg.Get(col.Target)
		if err != nil {
			return nil, err
		}
		stmt := fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			quoteIdent(t.Name),
			quoteIdent(t.Name+"_"+col.Name+"_fkey"),
			quoteIdent(col.Name),
			quoteIdent(target.Name),
			quoteIdent(target.PKName),
			onDeleteSQL(col.OnDelete))
		out = append(out, stmt)
	}
	return out, nil
}

// IndexSQL renders the CREATE INDEX statements for t's declared indexes.
func IndexSQL(t *schema.Table) []string {
	var out []string
	for _, idx := range t.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		cols := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = quoteIdent(c)
		}
		out = append(out, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique, quoteIdent(idx.Name), quoteIdent(t.Name), strings.Join(cols, ", ")))
	}
	return out
}

func onDeleteSQL(c schema.Cascade) string {
	switch c {
	case schema.CascadeDelete:
		return "CASCADE"
	case schema.SetNull:
		return "SET NULL"
	case schema.Restrict:
		return "RESTRICT"
	}
	return "NO ACTION"
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case time.Time:
		return "'" + x.Format(time.RFC3339) + "'"
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sortedTables returns every registered table ordered by name, for
// deterministic DDL output.
func sortedTables(reg *registry.Registry) []*schema.Table {
	all := reg.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*schema.Table, len(names))
	for i, name := range names {
		out[i] = all[name]
	}
	return out
}
