package orm

import (
	"context"
	"fmt"
	"sync"

	"stoqlib/pkg/builder"
	"stoqlib/pkg/database"
	"stoqlib/pkg/schema"
)

// State is an entity's lifecycle position.
type State int

const (
	// StateCreating is an entity not yet inserted; writes go to the
	// pending map and nothing touches the backend.
	StateCreating State = iota
	// StateLive is a persisted entity with a valid attribute cache.
	StateLive
	// StateExpired is a persisted entity whose attribute cache was
	// dropped; the next read rehydrates it.
	StateExpired
	// StateObsolete is a destroyed entity; any use fails.
	StateObsolete
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateLive:
		return "live"
	case StateExpired:
		return "expired"
	}
	return "obsolete"
}

// Record is one entity instance bound to a transaction. Typed classes embed
// *Record and add accessors; the runtime itself works on column names.
// A Record must only be used from its owning transaction.
type Record struct {
	tx    *Transaction
	table *schema.Table
	id    int64
	state State

	// mu guards expire and rehydrate; reads and writes otherwise stay on
	// the owning transaction's goroutine.
	mu sync.Mutex

	pending map[string]any // backend-bound writes not yet flushed
	attrs   map[string]any // hydrated attribute cache
	dirty   bool
	created bool // inserted by this transaction
}

// Create starts a new entity of className in the creating state. Nothing
// hits the backend until Flush (or Commit).
func (t *Transaction) Create(className string) (*Record, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	tbl, err := t.table(className)
	if err != nil {
		return nil, err
	}
	r := &Record{
		tx:      t,
		table:   tbl,
		state:   StateCreating,
		pending: make(map[string]any),
		attrs:   make(map[string]any),
	}
	t.fresh = append(t.fresh, r)
	return r, nil
}

// ID returns the primary key, zero while creating.
func (r *Record) ID() int64 { return r.id }

// Class returns the entity class name.
func (r *Record) Class() string { return r.table.ClassName }

// Table returns the entity metadata.
func (r *Record) Table() *schema.Table { return r.table }

// State returns the lifecycle state.
func (r *Record) State() State { return r.state }

// Transaction returns the owning transaction.
func (r *Record) Transaction() *Transaction { return r.tx }

// Set writes one attribute through the column's validator chain. While
// creating, and for live entities under lazy updates, the write lands in
// the pending map; a live entity otherwise gets an immediate single-column
// UPDATE. Immutable columns only accept writes while creating.
func (r *Record) Set(ctx context.Context, name string, value any) error {
	col := r.table.Column(name)
	if col == nil {
		return &UnknownColumnError{class: r.table.ClassName, column: name}
	}
	if r.state == StateObsolete {
		return &ObsoleteError{class: r.table.ClassName, id: r.id}
	}
	if col.Immutable && r.state != StateCreating {
		return &ImmutableError{class: r.table.ClassName, column: name}
	}
	converted, err := col.Convert(value, nil)
	if err != nil {
		return err
	}
	if r.state == StateCreating || r.tx.store.lazyUpdates {
		r.pending[name] = converted
		r.attrs[name] = converted
		r.dirty = true
		if r.state != StateCreating {
			r.tx.touch(r.table.Name, r.id, EntryModified)
		}
		return nil
	}
	q := builder.Update(r.table).
		Set(name, converted).
		Where(builder.Eq(r.table.PKName, r.id))
	sql, args, err := q.ToSQL()
	if err != nil {
		return err
	}
	affected, err := r.tx.runner.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		// the row went away under us, most likely a concurrent delete
		return &NotFoundError{class: r.table.ClassName}
	}
	r.attrs[name] = converted
	r.tx.touch(r.table.Name, r.id, EntryModified)
	return nil
}

// SetMany writes several attributes. Every name is checked before anything
// is written, so an unknown column leaves the entity untouched. Writes
// apply in the table's declaration order.
func (r *Record) SetMany(ctx context.Context, values map[string]any) error {
	for name := range values {
		if r.table.Column(name) == nil {
			return &UnknownColumnError{class: r.table.ClassName, column: name}
		}
	}
	for _, col := range r.table.Columns {
		v, ok := values[col.Name]
		if !ok {
			continue
		}
		if err := r.Set(ctx, col.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// Get reads one attribute. An expired entity rehydrates every column under
// its lock first; a cache miss on a live entity selects the single column.
func (r *Record) Get(ctx context.Context, name string) (any, error) {
	if r.state == StateObsolete {
		return nil, &ObsoleteError{class: r.table.ClassName, id: r.id}
	}
	if name == r.table.PKName {
		return r.id, nil
	}
	col := r.table.Column(name)
	if col == nil {
		return nil, &UnknownColumnError{class: r.table.ClassName, column: name}
	}
	if r.state == StateExpired {
		if err := r.rehydrate(ctx); err != nil {
			return nil, err
		}
	}
	if v, ok := r.attrs[name]; ok {
		return v, nil
	}
	if r.state == StateCreating {
		// unset attribute of an unflushed entity reads as its default
		v, _ := col.DefaultValue()
		return v, nil
	}
	q := builder.Select(r.table).
		Columns(name).
		Where(builder.Eq(r.table.PKName, r.id))
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	row, err := r.tx.runner.QueryRow(ctx, sql, args...)
	if err != nil {
		if err == database.ErrNoRows {
			return nil, &NotFoundError{class: r.table.ClassName}
		}
		return nil, err
	}
	r.attrs[name] = row[name]
	return row[name], nil
}

// rehydrate re-selects every column and returns the entity to live.
func (r *Record) rehydrate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateExpired {
		return nil
	}
	q := builder.Select(r.table).Where(builder.Eq(r.table.PKName, r.id))
	sql, args, err := q.ToSQL()
	if err != nil {
		return err
	}
	row, err := r.tx.runner.QueryRow(ctx, sql, args...)
	if err != nil {
		if err == database.ErrNoRows {
			return &NotFoundError{class: r.table.ClassName}
		}
		return err
	}
	r.hydrate(row)
	r.state = StateLive
	return nil
}

// hydrate replaces the attribute cache with row, primary key excluded.
func (r *Record) hydrate(row database.Row) {
	r.attrs = make(map[string]any, len(row))
	for name, v := range row {
		if name == r.table.PKName {
			continue
		}
		r.attrs[name] = v
	}
}

// Expire drops the attribute cache; the next read re-selects. The entity
// stays in the identity cache so later lookups keep the same instance.
func (r *Record) Expire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLive {
		return
	}
	r.attrs = make(map[string]any)
	r.pending = nil
	r.dirty = false
	r.state = StateExpired
}

// Flush finalizes a creating entity: resolves defaults, fails on a missing
// required column, INSERTs returning the primary key, installs the entity
// in the identity cache and queues its created audit row. Live entities
// flush their pending writes instead.
func (r *Record) Flush(ctx context.Context) error {
	if r.state != StateCreating {
		return r.Sync(ctx)
	}
	values := make(map[string]any, len(r.table.Columns))
	for _, col := range r.table.Columns {
		if v, ok := r.pending[col.Name]; ok {
			values[col.Name] = v
			continue
		}
		v, ok := col.DefaultValue()
		if !ok {
			return &RequiredError{class: r.table.ClassName, column: col.Name}
		}
		values[col.Name] = v
	}
	q := builder.Insert(r.table).SetMany(values).Returning(r.table.PKName)
	sql, args, err := q.ToSQL()
	if err != nil {
		return err
	}
	row, err := r.tx.runner.QueryRow(ctx, sql, args...)
	if err != nil {
		return err
	}
	id, err := asInt64(row[r.table.PKName])
	if err != nil {
		return fmt.Errorf("insert into %s returned bad primary key: %w", r.table.Name, err)
	}
	r.id = id
	for name, v := range values {
		r.attrs[name] = v
	}
	r.pending = make(map[string]any)
	r.dirty = false
	r.state = StateLive
	r.created = true
	r.tx.cache.put(cacheKey{table: r.table.Name, id: r.id}, r)
	r.tx.touch(r.table.Name, r.id, EntryCreated)
	return nil
}

// Sync flushes pending writes of a live entity as one UPDATE. Creating
// entities flush their insert instead; clean entities are a no-op.
func (r *Record) Sync(ctx context.Context) error {
	if r.state == StateCreating {
		return r.Flush(ctx)
	}
	if !r.dirty || len(r.pending) == 0 {
		return nil
	}
	q := builder.Update(r.table).
		SetMany(r.pending).
		Where(builder.Eq(r.table.PKName, r.id))
	sql, args, err := q.ToSQL()
	if err != nil {
		return err
	}
	affected, err := r.tx.runner.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return &NotFoundError{class: r.table.ClassName}
	}
	r.pending = make(map[string]any)
	r.dirty = false
	return nil
}

// Destroy deletes the entity after walking every registered inbound
// reference: restrict fails when referring rows exist, cascade destroys
// them recursively, set-null clears their reference column. The entity
// leaves the cache and becomes obsolete.
func (r *Record) Destroy(ctx context.Context) error {
	if r.state == StateObsolete {
		return &ObsoleteError{class: r.table.ClassName, id: r.id}
	}
	if r.state == StateCreating {
		r.state = StateObsolete
		return nil
	}
	for _, ref := range r.tx.store.reg.InboundReferences(r.table.ClassName) {
		if err := r.applyCascade(ctx, ref.FromClass, ref.Column, ref.OnDelete); err != nil {
			return err
		}
	}
	q := builder.Delete(r.table).Where(builder.Eq(r.table.PKName, r.id))
	sql, args, err := q.ToSQL()
	if err != nil {
		return err
	}
	if _, err := r.tx.runner.Exec(ctx, sql, args...); err != nil {
		return err
	}
	r.tx.cache.evict(cacheKey{table: r.table.Name, id: r.id})
	if r.created {
		r.tx.untouch(r.table.Name, r.id)
	} else {
		r.tx.touch(r.table.Name, r.id, EntryModified)
	}
	r.state = StateObsolete
	r.attrs = nil
	r.pending = nil
	r.dirty = false
	return nil
}

func (r *Record) applyCascade(ctx context.Context, fromClass, column string, policy schema.Cascade) error {
	fromTable, err := r.tx.table(fromClass)
	if err != nil {
		return err
	}
	switch policy {
	case schema.Restrict:
		q := builder.Select(fromTable).
			Columns(fromTable.PKName).
			Where(builder.Eq(column, r.id)).
			Limit(1)
		sql, args, err := q.ToSQL()
		if err != nil {
			return err
		}
		rows, err := r.tx.runner.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return database.NewIntegrityError(fmt.Sprintf(
				"%s(%d) is still referenced by %s.%s", r.table.ClassName, r.id, fromClass, column), nil)
		}
	case schema.CascadeDelete:
		q := builder.Select(fromTable).
			Columns(fromTable.PKName).
			Where(builder.Eq(column, r.id))
		sql, args, err := q.ToSQL()
		if err != nil {
			return err
		}
		rows, err := r.tx.runner.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		for _, row := range rows {
			id, err := asInt64(row[fromTable.PKName])
			if err != nil {
				return err
			}
			child, err := r.tx.Get(ctx, fromClass, id)
			if err != nil {
				if IsNotFound(err) {
					continue
				}
				return err
			}
			if err := child.Destroy(ctx); err != nil {
				return err
			}
		}
	case schema.SetNull:
		q := builder.Update(fromTable).
			Set(column, nil).
			Where(builder.Eq(column, r.id))
		sql, args, err := q.ToSQL()
		if err != nil {
			return err
		}
		if _, err := r.tx.runner.Exec(ctx, sql, args...); err != nil {
			return err
		}
		r.tx.cache.invalidate(fromTable.Name)
	}
	return nil
}

// Dereference follows a foreign-key column and returns the target entity
// through the identity cache. A null reference returns nil.
func (r *Record) Dereference(ctx context.Context, name string) (*Record, error) {
	col := r.table.Column(name)
	if col == nil {
		return nil, &UnknownColumnError{class: r.table.ClassName, column: name}
	}
	if col.Kind != schema.KindReference {
		return nil, fmt.Errorf("stoqlib: column %s.%s is not a reference", r.table.ClassName, name)
	}
	v, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	id, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	return r.tx.Get(ctx, col.Target, id)
}

// asInt64 widens the integer shapes the backend hands back.
func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
}
