package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

func TestCreateTableSQL(t *testing.T) {
	tbl := schema.MustTable("LoginUser", []*schema.Column{
		schema.String("username").NotNull().AsUnique().WithMaxLen(64),
		schema.String("pw_hash").NotNull(),
		schema.Bool("is_active").Default(true),
		schema.Decimal("discount"),
	})
	got := CreateTableSQL(tbl)
	assert.Equal(t, `CREATE TABLE "login_user" (
    "id" bigserial PRIMARY KEY,
    "username" varchar(64) NOT NULL UNIQUE,
    "pw_hash" text NOT NULL,
    "is_active" boolean DEFAULT true,
    "discount" numeric(10,2)
)`, got)
}

func TestForeignKeySQL(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(schema.MustTable("BranchStation", []*schema.Column{
		schema.String("name").NotNull(),
	})))
	tbl := schema.MustTable("LoginSession", []*schema.Column{
		schema.Reference("station_id", "BranchStation", schema.SetNull),
	})
	require.NoError(t, reg.Register(tbl))

	stmts, err := ForeignKeySQL(tbl, reg)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t,
		`ALTER TABLE "login_session" ADD CONSTRAINT "login_session_station_id_fkey" FOREIGN KEY ("station_id") REFERENCES "branch_station" ("id") ON DELETE SET NULL`,
		stmts[0])
}

func TestForeignKeyUnknownTarget(t *testing.T) {
	tbl := schema.MustTable("Orphan", []*schema.Column{
		schema.Reference("ghost_id", "Ghost", schema.NoAction),
	})
	_, err := ForeignKeySQL(tbl, registry.New())
	require.Error(t, err)
}

func TestSQLLiteral(t *testing.T) {
	assert.Equal(t, "'it''s'", sqlLiteral("it's"))
	assert.Equal(t, "NULL", sqlLiteral(nil))
	assert.Equal(t, "false", sqlLiteral(false))
	assert.Equal(t, "42", sqlLiteral(42))
}
