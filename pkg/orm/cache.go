package orm

import "sync"

// cacheKey identifies one entity row.
type cacheKey struct {
	table string
	id    int64
}

// cacheEntry is one identity-cache slot. ready is closed once the record
// is fully hydrated, so a concurrent getter never observes a half-built
// instance.
type cacheEntry struct {
	rec   *Record
	ready chan struct{}
}

// identityCache maps (table, id) to the single Record representing that row
// within one transaction. Publication is gated: the first getter reserves
// the slot, hydrates, then finishes the put; later getters block on ready.
type identityCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
}

func newIdentityCache() *identityCache {
	return &identityCache{entries: make(map[cacheKey]*cacheEntry)}
}

// lookupOrReserve returns the existing entry, or reserves the slot for the
// caller. reserved=true means the caller must call finishPut or abortPut.
func (c *identityCache) lookupOrReserve(key cacheKey) (entry *cacheEntry, reserved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e, false
	}
	e := &cacheEntry{ready: make(chan struct{})}
	c.entries[key] = e
	return e, true
}

// finishPut publishes rec under key and wakes waiting getters.
func (c *identityCache) finishPut(key cacheKey, rec *Record) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return
	}
	e.rec = rec
	close(e.ready)
}

// abortPut releases a reserved slot after a failed hydration. Waiting
// getters wake up to a nil record and retry.
func (c *identityCache) abortPut(key cacheKey) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if ok {
		close(e.ready)
	}
}

// wait blocks until the entry is published and returns its record, which
// is nil when the put was aborted.
func (e *cacheEntry) wait() *Record {
	<-e.ready
	return e.rec
}

// put installs an already hydrated record, as after an insert.
func (c *identityCache) put(key cacheKey, rec *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &cacheEntry{rec: rec, ready: make(chan struct{})}
	close(e.ready)
	c.entries[key] = e
}

// lookup returns the published record for key, or nil.
func (c *identityCache) lookup(key cacheKey) *Record {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-e.ready:
		return e.rec
	default:
		return nil
	}
}

// evict drops the entry for key.
func (c *identityCache) evict(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// invalidate expires every cached record of one table. Cascading writes
// that bypass instances (set-null updates) call this so stale attribute
// caches are re-read.
func (c *identityCache) invalidate(table string) {
	c.mu.Lock()
	var stale []*Record
	for key, e := range c.entries {
		if key.table != table {
			continue
		}
		select {
		case <-e.ready:
			if e.rec != nil {
				stale = append(stale, e.rec)
			}
		default:
		}
	}
	c.mu.Unlock()
	for _, rec := range stale {
		rec.Expire()
	}
}

// clear drops every entry; rollback calls this.
func (c *identityCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*cacheEntry)
}
