package orm

import (
	"context"

	"stoqlib/pkg/builder"
	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// EntryKind distinguishes audit rows.
type EntryKind int

const (
	// EntryCreated marks the insert of a new entity.
	EntryCreated EntryKind = iota
	// EntryModified marks any later mutation, deletes included.
	EntryModified
)

func (k EntryKind) String() string {
	if k == EntryCreated {
		return "created"
	}
	return "modified"
}

// TransactionEntryTable is the metadata for the audit table. Registered so
// schema generation creates it, but the runtime writes it directly at
// commit rather than through entity instances.
var TransactionEntryTable = registry.MustRegister(schema.MustTable("TransactionEntry", []*schema.Column{
	schema.String("entity_table").NotNull(),
	schema.Int("entity_id").NotNull(),
	schema.Int("kind").NotNull(),
	schema.DateTime("te_time").NotNull(),
	schema.Int("user_id"),
	schema.Int("station_id"),
}))

// auditEntry is one pending audit row; the timestamp and principal are
// resolved at commit, not at mutation time.
type auditEntry struct {
	table string
	id    int64
	kind  EntryKind
}

// flushEntries writes one audit row per touched entity inside the open
// backend transaction.
func (t *Transaction) flushEntries(ctx context.Context) error {
	if len(t.entries) == 0 {
		return nil
	}
	p := CurrentPrincipal(ctx)
	now := t.store.now()
	for _, e := range t.entries {
		q := builder.Insert(TransactionEntryTable).
			Set("entity_table", e.table).
			Set("entity_id", e.id).
			Set("kind", int64(e.kind)).
			Set("te_time", now)
		if p.UserID != nil {
			q.Set("user_id", *p.UserID)
		} else {
			q.Set("user_id", nil)
		}
		if p.StationID != nil {
			q.Set("station_id", *p.StationID)
		} else {
			q.Set("station_id", nil)
		}
		sql, args, err := q.ToSQL()
		if err != nil {
			return err
		}
		if _, err := t.runner.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}
	return nil
}
