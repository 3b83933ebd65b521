//go:build integration
// +build integration

package stoqlib_test

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stoqlib/pkg/bootstrap"
	"stoqlib/pkg/builder"
	"stoqlib/pkg/database"
	"stoqlib/pkg/domain"
	"stoqlib/pkg/migration"
	"stoqlib/pkg/orm"
	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// Test entity classes beyond the system ones.
var (
	productTable = schema.MustTable("Product", []*schema.Column{
		schema.String("description").NotNull().WithMaxLen(128),
		schema.Decimal("price").NotNull().Default("0"),
		schema.String("code").AsUnique(),
		schema.Reference("unit_id", "Unit", schema.Restrict),
	})
	stockItemTable = schema.MustTable("StockItem", []*schema.Column{
		schema.Int("quantity").NotNull().Default(0),
		schema.Reference("product_id", "Product", schema.CascadeDelete),
	})
)

func setupDB(t *testing.T) (*database.DB, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return db, cleanup
}

// registerOnce guards the global registry; tests in this file share it.
var registerOnce sync.Once

func setupSchema(t *testing.T, db *database.DB) {
	t.Helper()
	registerOnce.Do(func() {
		registry.MustRegister(productTable)
		registry.MustRegister(stockItemTable)
	})

	driver := migration.New(db, fstest.MapFS{})
	require.NoError(t, driver.CreateFromMetadata(context.Background(), registry.Default()))
}

func TestIntegration_EntityLifecycle(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()
	setupSchema(t, db)
	ctx := context.Background()
	store := orm.NewStore(db)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	unit, err := domain.NewUnit(tx)
	require.NoError(t, err)
	require.NoError(t, unit.Set(ctx, "description", "Kilogram"))
	require.NoError(t, unit.Set(ctx, "abbreviation", "kg"))
	require.NoError(t, unit.Flush(ctx))

	p, err := tx.Create("Product")
	require.NoError(t, err)
	require.NoError(t, p.SetMany(ctx, map[string]any{
		"description": "Flour",
		"price":       "12.50",
		"code":        "FL-1",
		"unit_id":     unit.ID(),
	}))
	require.NoError(t, p.Flush(ctx))
	require.NoError(t, tx.Commit(ctx))

	// read back in a new transaction
	tx2, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Close(ctx)

	got, err := tx2.FindByUnique(ctx, "Product", "code", "FL-1")
	require.NoError(t, err)
	desc, err := got.Get(ctx, "description")
	require.NoError(t, err)
	assert.Equal(t, "Flour", desc)

	// foreign-key dereference reaches the unit
	u, err := got.Dereference(ctx, "unit_id")
	require.NoError(t, err)
	abbr, err := u.Get(ctx, "abbreviation")
	require.NoError(t, err)
	assert.Equal(t, "kg", abbr)

	// identity: the same row is the same instance
	same, err := tx2.Get(ctx, "Product", got.ID())
	require.NoError(t, err)
	assert.Same(t, got, same)

	// restrict: the unit cannot be destroyed while referenced
	err = u.Destroy(ctx)
	require.Error(t, err)
	assert.True(t, database.IsIntegrity(err))

	// cascade: destroying the product removes its stock items
	item, err := tx2.Create("StockItem")
	require.NoError(t, err)
	require.NoError(t, item.Set(ctx, "quantity", 3))
	require.NoError(t, item.Set(ctx, "product_id", got.ID()))
	require.NoError(t, item.Flush(ctx))
	require.NoError(t, got.Destroy(ctx))
	assert.Equal(t, orm.StateObsolete, item.State())
	require.NoError(t, tx2.Commit(ctx))
}

func TestIntegration_AuditEntries(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()
	setupSchema(t, db)
	ctx := context.Background()
	store := orm.NewStore(db)

	user, station := int64(0), int64(0)
	require.NoError(t, bootstrap.Run(ctx, store, bootstrap.DefaultConfig()))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	admin, err := domain.LoginUserByUsername(ctx, tx, "admin")
	require.NoError(t, err)
	st, err := domain.BranchStationByName(ctx, tx, "main")
	require.NoError(t, err)
	user, station = admin.ID(), st.ID()
	require.NoError(t, tx.Rollback(ctx))

	actx := orm.WithPrincipal(ctx, orm.Principal{UserID: &user, StationID: &station})
	tx, err = store.Begin(actx)
	require.NoError(t, err)
	unit, err := domain.NewUnit(tx)
	require.NoError(t, err)
	require.NoError(t, unit.Set(actx, "description", "Dozen"))
	require.NoError(t, unit.Set(actx, "abbreviation", "dz"))
	require.NoError(t, unit.Flush(actx))
	require.NoError(t, tx.Commit(actx))

	rows, err := db.Query(ctx,
		`SELECT kind, user_id, station_id FROM transaction_entry WHERE entity_table = 'unit' AND entity_id = $1`,
		unit.ID())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, orm.EntryCreated, rows[0]["kind"])
	assert.EqualValues(t, user, rows[0]["user_id"])
	assert.EqualValues(t, station, rows[0]["station_id"])
}

func TestIntegration_BootstrapIdempotent(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()
	setupSchema(t, db)
	ctx := context.Background()
	store := orm.NewStore(db)

	require.NoError(t, bootstrap.Run(ctx, store, bootstrap.DefaultConfig()))
	require.NoError(t, bootstrap.Run(ctx, store, bootstrap.DefaultConfig()))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Close(ctx)
	n, err := tx.Select("LoginUser").Where(builder.Eq("username", "admin")).Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	admin, err := domain.LoginUserByUsername(ctx, tx, "admin")
	require.NoError(t, err)
	ok, err := admin.CheckPassword(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIntegration_MigrationScripts(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()
	ctx := context.Background()

	scripts := fstest.MapFS{
		"postgres-schema-migration-1.sql": &fstest.MapFile{Data: []byte(
			"CREATE TABLE widget (id bigserial PRIMARY KEY, name text NOT NULL);\n")},
		"postgres-schema-migration-2.sql": &fstest.MapFile{Data: []byte(
			"ALTER TABLE widget ADD COLUMN weight numeric(10,2);\n" +
				"CREATE INDEX idx_widget_name ON widget (name);\n")},
	}
	driver := migration.New(db, scripts)
	require.NoError(t, driver.Up(ctx, -1))

	v, err := driver.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	exists, err := database.TableExists(ctx, db, "widget")
	require.NoError(t, err)
	assert.True(t, exists)

	// a second run is a no-op
	require.NoError(t, driver.Up(ctx, -1))
	list, err := driver.StatusList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Applied)
	assert.True(t, list[1].Applied)
}
