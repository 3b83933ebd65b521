package migration

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"stoqlib/pkg/database"
	"stoqlib/pkg/registry"
)

// SystemTable records applied schema versions, one row per version.
const SystemTable = "system_table"

// defaultLockID serializes migration runs across processes.
const defaultLockID int64 = 0x53544f51 // "STOQ"

// Database is what the driver needs from the backend.
type Database interface {
	database.Runner
	Begin(ctx context.Context) (database.TxRunner, error)
}

// Status describes one script's application state.
type Status struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Driver applies versioned migration scripts. Each script and its system
// table row commit together; the whole run holds an advisory lock.
type Driver struct {
	db       Database
	scripts  fs.FS
	baseline int
	lockID   int64
	now      func() time.Time
}

// Option adjusts driver construction.
type Option func(*Driver)

// WithBaseline sets the version stamped when the system table is first
// created: the schema version the scripts start from.
func WithBaseline(version int) Option {
	return func(d *Driver) { d.baseline = version }
}

// WithLockID overrides the advisory lock key.
func WithLockID(id int64) Option {
	return func(d *Driver) { d.lockID = id }
}

// WithClock overrides the applied_at timestamp source; tests pin it.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New builds a driver reading scripts from fsys.
func New(db Database, fsys fs.FS, opts ...Option) *Driver {
	d := &Driver{
		db:      db,
		scripts: fsys,
		lockID:  defaultLockID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) lock(ctx context.Context) error {
	if _, err := d.db.QueryRow(ctx, "SELECT pg_advisory_lock($1) AS locked", d.lockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	return nil
}

func (d *Driver) unlock(ctx context.Context) {
	_, _ = d.db.QueryRow(ctx, "SELECT pg_advisory_unlock($1) AS unlocked", d.lockID)
}

// EnsureSystemTable creates the version table when absent and stamps the
// baseline version. An existing table is left alone.
func (d *Driver) EnsureSystemTable(ctx context.Context) error {
	exists, err := database.TableExists(ctx, d.db, SystemTable)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	ddl := fmt.Sprintf(
		"CREATE TABLE %s (version integer NOT NULL, applied_at timestamp with time zone NOT NULL)",
		quoteIdent(SystemTable))
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return err
	}
	if err := d.stamp(ctx, tx, d.baseline); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (d *Driver) stamp(ctx context.Context, r database.Runner, version int) error {
	_, err := r.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (version, applied_at) VALUES ($1, $2)", quoteIdent(SystemTable)),
		version, d.now())
	return err
}

// CurrentVersion reads the highest applied version.
func (d *Driver) CurrentVersion(ctx context.Context) (int, error) {
	row, err := d.db.QueryRow(ctx,
		fmt.Sprintf("SELECT max(version) AS v FROM %s", quoteIdent(SystemTable)))
	if err != nil {
		return 0, err
	}
	if row["v"] == nil {
		return d.baseline, nil
	}
	switch v := row["v"].(type) {
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("system table holds a non-integer version: %v", row["v"])
}

// LatestVersion returns the highest script version, or the baseline when no
// scripts exist.
func (d *Driver) LatestVersion() (int, error) {
	scripts, err := LoadScripts(d.scripts)
	if err != nil {
		return 0, err
	}
	if len(scripts) == 0 {
		return d.baseline, nil
	}
	return scripts[len(scripts)-1].Version, nil
}

// Up walks the database from its current version to target, one script per
// version, strictly in order. target < 0 means the latest script. A gap in
// the script sequence, or a target below the current version, is a
// SchemaMismatchError raised before any script runs. Each script commits
// together with its version row.
func (d *Driver) Up(ctx context.Context, target int) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.unlock(ctx)

	if err := d.EnsureSystemTable(ctx); err != nil {
		return err
	}
	current, err := d.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	scripts, err := LoadScripts(d.scripts)
	if err != nil {
		return err
	}
	if target < 0 {
		target = current
		if len(scripts) > 0 {
			target = scripts[len(scripts)-1].Version
			if target < current {
				target = current
			}
		}
	}
	if target < current {
		return &SchemaMismatchError{Current: current, Target: target}
	}
	byVersion := make(map[int]Script, len(scripts))
	for _, s := range scripts {
		byVersion[s.Version] = s
	}
	// check the whole sequence up front; a gap must not leave the
	// database partway to the target
	for v := current + 1; v <= target; v++ {
		if _, ok := byVersion[v]; !ok {
			return &SchemaMismatchError{Current: current, Target: target, Missing: v}
		}
	}
	for v := current + 1; v <= target; v++ {
		if err := d.apply(ctx, byVersion[v]); err != nil {
			return fmt.Errorf("migration to version %d failed: %w", v, err)
		}
	}
	return nil
}

func (d *Driver) apply(ctx context.Context, script Script) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, stmt := range splitStatements(script.SQL) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	if err := d.stamp(ctx, tx, script.Version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// StatusList reports every script with whether and when it was applied.
func (d *Driver) StatusList(ctx context.Context) ([]Status, error) {
	scripts, err := LoadScripts(d.scripts)
	if err != nil {
		return nil, err
	}
	rows, err := d.db.Query(ctx,
		fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", quoteIdent(SystemTable)))
	if err != nil {
		return nil, err
	}
	applied := make(map[int]time.Time, len(rows))
	for _, row := range rows {
		var v int
		switch n := row["version"].(type) {
		case int64:
			v = int(n)
		case int32:
			v = int(n)
		case int:
			v = n
		default:
			continue
		}
		if at, ok := row["applied_at"].(time.Time); ok {
			applied[v] = at
		}
	}
	out := make([]Status, 0, len(scripts))
	for _, s := range scripts {
		st := Status{Version: s.Version, Name: s.Name}
		if at, ok := applied[s.Version]; ok {
			st.Applied = true
			t := at
			st.AppliedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}

// CreateFromMetadata builds a fresh database: every registered table, then
// foreign keys, then indexes, then the system table stamped at the latest
// script version so no migration ever re-runs. All in one transaction.
func (d *Driver) CreateFromMetadata(ctx context.Context, reg *registry.Registry) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.unlock(ctx)

	exists, err := database.TableExists(ctx, d.db, SystemTable)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("database is already initialized")
	}
	latest, err := d.LatestVersion()
	if err != nil {
		return err
	}
	tables := sortedTables(reg)

	tx, err := d.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range tables {
		if _, err := tx.Exec(ctx, CreateTableSQL(t)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
	}
	for _, t := range tables {
		stmts, err := ForeignKeySQL(t, reg)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to add foreign keys of %s: %w", t.Name, err)
			}
		}
	}
	for _, t := range tables {
		for _, stmt := range IndexSQL(t) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create indexes of %s: %w", t.Name, err)
			}
		}
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE %s (version integer NOT NULL, applied_at timestamp with time zone NOT NULL)",
		quoteIdent(SystemTable))
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return err
	}
	if err := d.stamp(ctx, tx, latest); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
