package orm

import (
	"context"

	"stoqlib/pkg/database"
	"stoqlib/pkg/schema"
)

// Transaction owns one backend transaction, the identity cache scoped to
// it, and the set of touched entities awaiting audit rows. Instances built
// in one transaction must not be used from another.
type Transaction struct {
	store  *Store
	runner database.TxRunner
	cache  *identityCache
	// entries preserve mutation order; byKind dedupes per entity and kind.
	entries []auditEntry
	byKind  map[auditKey]bool
	// fresh holds records built by Create; Commit flushes any still
	// creating so construct-then-commit persists without an explicit Flush.
	fresh  []*Record
	closed bool
}

type auditKey struct {
	table string
	id    int64
	kind  EntryKind
}

// Runner exposes the open backend transaction for raw SQL escape hatches.
func (t *Transaction) Runner() database.Runner { return t.runner }

// Store returns the owning store.
func (t *Transaction) Store() *Store { return t.store }

// touch records that an entity needs an audit row. An entity gets at most
// one created and one modified entry per transaction, so an insert followed
// by updates yields exactly two rows.
func (t *Transaction) touch(table string, id int64, kind EntryKind) {
	if t.byKind == nil {
		t.byKind = make(map[auditKey]bool)
	}
	key := auditKey{table: table, id: id, kind: kind}
	if t.byKind[key] {
		return
	}
	t.byKind[key] = true
	t.entries = append(t.entries, auditEntry{table: table, id: id, kind: kind})
}

// untouch drops every pending entry for an entity that no longer exists,
// as when a row created in this transaction is destroyed before commit.
func (t *Transaction) untouch(table string, id int64) {
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.table == table && e.id == id {
			delete(t.byKind, auditKey{table: table, id: id, kind: e.kind})
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
}

// Commit flushes dirty entities, writes one audit row per touched entity
// with the ambient principal and the clock's now, then commits the backend
// transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	for _, rec := range t.fresh {
		if rec.state != StateCreating {
			continue
		}
		if err := rec.Flush(ctx); err != nil {
			return err
		}
	}
	for _, e := range t.entries {
		rec := t.cache.lookup(cacheKey{table: e.table, id: e.id})
		if rec == nil {
			continue
		}
		if err := rec.Sync(ctx); err != nil {
			return err
		}
	}
	if err := t.flushEntries(ctx); err != nil {
		return err
	}
	if err := t.runner.Commit(ctx); err != nil {
		return err
	}
	t.closed = true
	t.entries = nil
	t.byKind = nil
	t.fresh = nil
	return nil
}

// Rollback discards the touched set and rolls back the backend
// transaction. Safe on a closed transaction.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.entries = nil
	t.byKind = nil
	t.fresh = nil
	t.cache.clear()
	return t.runner.Rollback(ctx)
}

// Close rolls back if the transaction is still open.
func (t *Transaction) Close(ctx context.Context) error {
	return t.Rollback(ctx)
}

// table resolves a class name through the store's registry.
func (t *Transaction) table(className string) (*schema.Table, error) {
	return t.store.reg.Get(className)
}
