package orm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoqlib/pkg/database"
	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// newWorld builds a registry with a small class graph, a scripted backend
// and an open transaction over it.
func newWorld(t *testing.T, opts ...StoreOption) (*Transaction, *fakeTx) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(schema.MustTable("Person", []*schema.Column{
		schema.String("name").NotNull(),
		schema.String("email").AsUnique(),
		schema.String("code").AsImmutable().Default("P0"),
		schema.Int("age"),
	})))
	require.NoError(t, reg.Register(schema.MustTable("Address", []*schema.Column{
		schema.String("street").NotNull().Default(""),
		schema.Reference("person_id", "Person", schema.CascadeDelete),
	})))
	require.NoError(t, reg.Register(schema.MustTable("Note", []*schema.Column{
		schema.String("body").Default(""),
		schema.Reference("person_id", "Person", schema.SetNull),
	})))

	fake := &fakeTx{t: t}
	opts = append([]StoreOption{WithRegistry(reg)}, opts...)
	store := NewStore(&fakeDB{tx: fake}, opts...)
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	return tx, fake
}

func TestCreateFlush(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`INSERT INTO "person"`, `RETURNING "id"`},
		rows:     []database.Row{{"id": int64(7)}},
	})

	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)
	assert.Equal(t, StateCreating, p.State())

	require.NoError(t, p.Set(ctx, "name", "alice"))
	require.NoError(t, p.Set(ctx, "age", 30))
	require.NoError(t, p.Flush(ctx))

	assert.Equal(t, StateLive, p.State())
	assert.Equal(t, int64(7), p.ID())
	fake.drained()

	// flushed entity is the cached instance for its id
	got, err := tx.Get(ctx, "Person", 7)
	require.NoError(t, err)
	assert.Same(t, p, got)
}

func TestFlushRequiredMissing(t *testing.T) {
	tx, _ := newWorld(t)
	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)
	// name is not null and has no default
	err = p.Flush(ctx)
	require.Error(t, err)
	assert.True(t, IsRequired(err))
	assert.Contains(t, err.Error(), "name")
}

func TestFlushUsesDefaults(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`INSERT INTO "address"`},
		rows:     []database.Row{{"id": int64(1)}},
	})
	ctx := context.Background()
	a, err := tx.Create("Address")
	require.NoError(t, err)
	require.NoError(t, a.Flush(ctx))

	street, err := a.Get(ctx, "street")
	require.NoError(t, err)
	assert.Equal(t, "", street)
	fake.drained()
}

func TestSetValidatorGate(t *testing.T) {
	tx, _ := newWorld(t)
	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)

	// int column coerces numeric strings
	require.NoError(t, p.Set(ctx, "age", "42"))
	age, err := p.Get(ctx, "age")
	require.NoError(t, err)
	assert.Equal(t, int64(42), age)

	// not-null column rejects nil
	require.Error(t, p.Set(ctx, "name", nil))
}

func TestSetUnknownColumn(t *testing.T) {
	tx, _ := newWorld(t)
	p, err := tx.Create("Person")
	require.NoError(t, err)
	err = p.Set(context.Background(), "shoe_size", 43)
	assert.True(t, IsUnknownColumn(err))

	err = p.SetMany(context.Background(), map[string]any{"name": "x", "shoe_size": 43})
	assert.True(t, IsUnknownColumn(err))
	// SetMany validates before writing anything
	v, err2 := p.Get(context.Background(), "name")
	require.NoError(t, err2)
	assert.Nil(t, v)
}

func TestImmutableColumn(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`INSERT INTO "person"`},
		rows:     []database.Row{{"id": int64(1)}},
	})
	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)
	// writable while creating
	require.NoError(t, p.Set(ctx, "code", "P7"))
	require.NoError(t, p.Set(ctx, "name", "bob"))
	require.NoError(t, p.Flush(ctx))
	// frozen once live
	err = p.Set(ctx, "code", "P8")
	assert.True(t, IsImmutable(err))
}

func TestEagerWriteEmitsUpdate(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`SELECT`, `FROM "person"`},
		rows:     []database.Row{{"id": int64(3), "name": "carl", "email": nil, "code": "P0", "age": int64(50)}},
	})
	fake.expect(expectation{
		contains: []string{`UPDATE "person" SET "name" = $1`},
		affected: 1,
	})
	ctx := context.Background()
	p, err := tx.Get(ctx, "Person", 3)
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "name", "carlos"))
	fake.drained()

	name, err := p.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "carlos", name)
}

func TestLazyWriteSyncsOnce(t *testing.T) {
	tx, fake := newWorld(t, WithLazyUpdates(true))
	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(3), "name": "carl", "email": nil, "code": "P0", "age": int64(50)}},
	})
	// one UPDATE for both writes, only at Sync
	fake.expect(expectation{
		contains: []string{`UPDATE "person" SET "age" = $1, "name" = $2`},
		affected: 1,
	})
	ctx := context.Background()
	p, err := tx.Get(ctx, "Person", 3)
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "name", "carlos"))
	require.NoError(t, p.Set(ctx, "age", 51))
	require.NoError(t, p.Sync(ctx))
	require.NoError(t, p.Sync(ctx)) // clean, no SQL
	fake.drained()
}

func TestGetIdentity(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`FROM "person"`, `WHERE "id" = $1`},
		rows:     []database.Row{{"id": int64(5), "name": "eve", "email": nil, "code": "P0", "age": nil}},
	})
	ctx := context.Background()
	a, err := tx.Get(ctx, "Person", 5)
	require.NoError(t, err)
	b, err := tx.Get(ctx, "Person", 5)
	require.NoError(t, err)
	assert.Same(t, a, b)
	fake.drained() // second Get was a cache hit
}

func TestGetNotFound(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{contains: []string{`FROM "person"`}})
	_, err := tx.Get(context.Background(), "Person", 99)
	assert.True(t, IsNotFound(err))

	// the aborted slot does not poison later lookups
	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(99), "name": "zed", "email": nil, "code": "P0", "age": nil}},
	})
	p, err := tx.Get(context.Background(), "Person", 99)
	require.NoError(t, err)
	assert.Equal(t, int64(99), p.ID())
}

func TestExpireRehydrate(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(5), "name": "eve", "email": nil, "code": "P0", "age": nil}},
	})
	ctx := context.Background()
	p, err := tx.Get(ctx, "Person", 5)
	require.NoError(t, err)

	p.Expire()
	assert.Equal(t, StateExpired, p.State())

	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(5), "name": "eva", "email": nil, "code": "P0", "age": nil}},
	})
	name, err := p.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "eva", name)
	assert.Equal(t, StateLive, p.State())

	// identity survives expiry
	again, err := tx.Get(ctx, "Person", 5)
	require.NoError(t, err)
	assert.Same(t, p, again)
	fake.drained()
}

func TestLazyColumnLoad(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(5), "name": "eve", "email": nil, "code": "P0", "age": nil}},
	})
	ctx := context.Background()
	p, err := tx.Get(ctx, "Person", 5)
	require.NoError(t, err)
	// drop one attribute to force a single-column select
	delete(p.attrs, "name")
	fake.expect(expectation{
		contains: []string{`SELECT "name" FROM "person"`},
		rows:     []database.Row{{"name": "eve"}},
	})
	name, err := p.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "eve", name)
	fake.drained()
}

func TestDestroyCascades(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(1), "name": "ann", "email": nil, "code": "P0", "age": nil}},
	})
	ctx := context.Background()
	p, err := tx.Get(ctx, "Person", 1)
	require.NoError(t, err)

	// cascade: addresses referring to the person are selected and destroyed
	fake.expect(expectation{
		contains: []string{`SELECT "id" FROM "address"`, `"person_id" = $1`},
		rows:     []database.Row{{"id": int64(10)}},
	})
	fake.expect(expectation{
		contains: []string{`FROM "address"`, `WHERE "id" = $1`},
		rows:     []database.Row{{"id": int64(10), "street": "x", "person_id": int64(1)}},
	})
	fake.expect(expectation{
		contains: []string{`DELETE FROM "address"`},
		affected: 1,
	})
	// set-null: notes keep their rows, reference cleared
	fake.expect(expectation{
		contains: []string{`UPDATE "note" SET "person_id" = $1`, `"person_id" = $2`},
		affected: 2,
	})
	fake.expect(expectation{
		contains: []string{`DELETE FROM "person"`},
		affected: 1,
	})

	require.NoError(t, p.Destroy(ctx))
	assert.Equal(t, StateObsolete, p.State())
	fake.drained()

	_, err = p.Get(ctx, "name")
	assert.True(t, IsObsolete(err))
	err = p.Set(ctx, "name", "x")
	assert.True(t, IsObsolete(err))
}

func TestDestroyRestrict(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(schema.MustTable("Unit", []*schema.Column{
		schema.String("label").NotNull(),
	})))
	require.NoError(t, reg.Register(schema.MustTable("Product", []*schema.Column{
		schema.Reference("unit_id", "Unit", schema.Restrict),
	})))
	fake := &fakeTx{t: t}
	store := NewStore(&fakeDB{tx: fake}, WithRegistry(reg))
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)

	fake.expect(expectation{
		contains: []string{`FROM "unit"`},
		rows:     []database.Row{{"id": int64(2), "label": "kg"}},
	})
	ctx := context.Background()
	u, err := tx.Get(ctx, "Unit", 2)
	require.NoError(t, err)

	fake.expect(expectation{
		contains: []string{`SELECT "id" FROM "product"`, `"unit_id" = $1`, `LIMIT 1`},
		rows:     []database.Row{{"id": int64(30)}},
	})
	err = u.Destroy(ctx)
	require.Error(t, err)
	assert.True(t, database.IsIntegrity(err))
	fake.drained()
}

func TestDereference(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`FROM "address"`},
		rows:     []database.Row{{"id": int64(10), "street": "elm", "person_id": int64(5)}},
	})
	ctx := context.Background()
	a, err := tx.Get(ctx, "Address", 10)
	require.NoError(t, err)

	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(5), "name": "eve", "email": nil, "code": "P0", "age": nil}},
	})
	p, err := a.Dereference(ctx, "person_id")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID())
	fake.drained()

	// null reference dereferences to nil
	fake.expect(expectation{
		contains: []string{`FROM "note"`},
		rows:     []database.Row{{"id": int64(20), "body": "", "person_id": nil}},
	})
	n, err := tx.Get(ctx, "Note", 20)
	require.NoError(t, err)
	target, err := n.Dereference(ctx, "person_id")
	require.NoError(t, err)
	assert.Nil(t, target)
}

func TestFindByUnique(t *testing.T) {
	tx, fake := newWorld(t)
	ctx := context.Background()

	fake.expect(expectation{contains: []string{`"email" = $1`, `LIMIT 2`}})
	_, err := tx.FindByUnique(ctx, "Person", "email", "none@x")
	assert.True(t, IsNotFound(err))

	fake.expect(expectation{
		contains: []string{`"email" = $1`},
		rows:     []database.Row{{"id": int64(4), "name": "dan", "email": "dan@x", "code": "P0", "age": nil}},
	})
	p, err := tx.FindByUnique(ctx, "Person", "email", "dan@x")
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.ID())

	fake.expect(expectation{
		contains: []string{`"email" = $1`},
		rows: []database.Row{
			{"id": int64(4), "name": "dan", "email": "dan@x", "code": "P0", "age": nil},
			{"id": int64(5), "name": "don", "email": "dan@x", "code": "P0", "age": nil},
		},
	})
	_, err = tx.FindByUnique(ctx, "Person", "email", "dan@x")
	assert.True(t, IsNotSingular(err))
	fake.drained()
}

func TestCommitStampsAudit(t *testing.T) {
	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tx, fake := newWorld(t, WithClock(func() time.Time { return when }))

	fake.expect(expectation{
		contains: []string{`INSERT INTO "person"`},
		rows:     []database.Row{{"id": int64(7)}},
	})
	fake.expect(expectation{
		contains: []string{`INSERT INTO "transaction_entry"`},
		affected: 1,
	})

	user, station := int64(1), int64(2)
	ctx := WithPrincipal(context.Background(), Principal{UserID: &user, StationID: &station})
	p, err := tx.Create("Person")
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "name", "alice"))
	require.NoError(t, p.Flush(ctx))
	require.NoError(t, tx.Commit(ctx))

	assert.True(t, fake.committed)
	fake.drained()

	_, err = tx.Get(ctx, "Person", 7)
	assert.ErrorIs(t, err, ErrTxClosed)
}

func TestCreateThenModifyAuditsBoth(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`INSERT INTO "person"`},
		rows:     []database.Row{{"id": int64(7)}},
	})
	fake.expect(expectation{
		contains: []string{`UPDATE "person" SET "age" = $1`},
		affected: 1,
	})
	fake.expect(expectation{
		contains: []string{`UPDATE "person" SET "name" = $1`},
		affected: 1,
	})
	// one created row and one modified row, never more
	fake.expect(expectation{
		contains: []string{`INSERT INTO "transaction_entry"`},
		affected: 1,
	})
	fake.expect(expectation{
		contains: []string{`INSERT INTO "transaction_entry"`},
		affected: 1,
	})

	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "name", "fay"))
	require.NoError(t, p.Flush(ctx))
	require.NoError(t, p.Set(ctx, "age", 30))
	require.NoError(t, p.Set(ctx, "name", "faye"))

	require.Equal(t, []auditEntry{
		{table: "person", id: 7, kind: EntryCreated},
		{table: "person", id: 7, kind: EntryModified},
	}, tx.entries)

	require.NoError(t, tx.Commit(ctx))
	fake.drained()
}

func TestCommitFlushesCreating(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`INSERT INTO "person"`, `RETURNING "id"`},
		rows:     []database.Row{{"id": int64(9)}},
	})
	fake.expect(expectation{
		contains: []string{`INSERT INTO "transaction_entry"`},
		affected: 1,
	})

	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "name", "gil"))

	// no explicit Flush; commit persists the entity
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, StateLive, p.State())
	assert.Equal(t, int64(9), p.ID())
	assert.True(t, fake.committed)
	fake.drained()
}

func TestCommitFailsOnUnflushableCreating(t *testing.T) {
	tx, fake := newWorld(t)
	ctx := context.Background()
	// name is required and never set, so the commit-time flush fails
	_, err := tx.Create("Person")
	require.NoError(t, err)
	err = tx.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsRequired(err))
	assert.False(t, fake.committed)
}

func TestEagerWriteToDeletedRow(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`FROM "person"`},
		rows:     []database.Row{{"id": int64(3), "name": "carl", "email": nil, "code": "P0", "age": int64(50)}},
	})
	ctx := context.Background()
	p, err := tx.Get(ctx, "Person", 3)
	require.NoError(t, err)

	// another transaction deleted the row; the update matches nothing
	fake.expect(expectation{
		contains: []string{`UPDATE "person" SET "name" = $1`},
		affected: 0,
	})
	err = p.Set(ctx, "name", "carlos")
	assert.True(t, IsNotFound(err))
	fake.drained()
}

func TestRollbackDiscardsAudit(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`INSERT INTO "person"`},
		rows:     []database.Row{{"id": int64(7)}},
	})
	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "name", "alice"))
	require.NoError(t, p.Flush(ctx))

	require.NoError(t, tx.Rollback(ctx))
	assert.True(t, fake.rolledBack)
	fake.drained() // no audit rows were written
}

func TestDestroyCreatedBeforeCommitLeavesNoAudit(t *testing.T) {
	tx, fake := newWorld(t)
	fake.expect(expectation{
		contains: []string{`INSERT INTO "person"`},
		rows:     []database.Row{{"id": int64(7)}},
	})
	// cascade walk over address and note, both empty
	fake.expect(expectation{contains: []string{`FROM "address"`}})
	fake.expect(expectation{contains: []string{`UPDATE "note"`}})
	fake.expect(expectation{contains: []string{`DELETE FROM "person"`}, affected: 1})

	ctx := context.Background()
	p, err := tx.Create("Person")
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "name", "gone"))
	require.NoError(t, p.Flush(ctx))
	require.NoError(t, p.Destroy(ctx))

	// commit writes no transaction_entry rows
	require.NoError(t, tx.Commit(ctx))
	fake.drained()
}
