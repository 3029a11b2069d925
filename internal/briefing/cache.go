package briefing

import (
	"sync"

	"github.com/daviddao/scout/internal/types"
)

// DraftCache maps candidate IDs to the current best-known draft.
//
// Once an entry exists it is authoritative over the snapshot embedded in the
// candidate record. Entries are seeded from snapshots only when absent, so a
// reload of the same queue never discards an edit.
type DraftCache struct {
	mu      sync.RWMutex
	entries map[string]*types.Draft
}

// NewDraftCache returns an empty cache.
func NewDraftCache() *DraftCache {
	return &DraftCache{entries: make(map[string]*types.Draft)}
}

// Get returns a copy of the cached draft for id, falling back to snapshot on
// a miss. ok is false when neither exists.
func (c *DraftCache) Get(id string, snapshot *types.Draft) (*types.Draft, bool) {
	c.mu.RLock()
	d, hit := c.entries[id]
	c.mu.RUnlock()
	if hit {
		return d.Clone(), true
	}
	if snapshot != nil {
		return snapshot.Clone(), true
	}
	return nil, false
}

// Peek returns a copy of the cache entry alone, ignoring snapshots.
func (c *DraftCache) Peek(id string) (*types.Draft, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[id]
	return d.Clone(), ok
}

// Hydrate seeds entries from embedded snapshots for candidates that have no
// entry yet and returns how many were seeded.
func (c *DraftCache) Hydrate(candidates []types.Candidate) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	seeded := 0
	for _, cand := range candidates {
		if cand.Draft == nil {
			continue
		}
		if _, ok := c.entries[cand.ID]; ok {
			continue
		}
		c.entries[cand.ID] = cand.Draft.Clone()
		seeded++
	}
	return seeded
}

// Put stores a copy of d as the entry for id.
func (c *DraftCache) Put(id string, d *types.Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = d.Clone()
}

// Delete removes the entry for id.
func (c *DraftCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// restore puts back prev (or removes the entry when had is false), but only
// if the entry still holds written. A later write wins over a rollback.
func (c *DraftCache) restore(id string, written, prev *types.Draft, had bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[id]; !ok || !cur.Equal(written) {
		return false
	}
	if had {
		c.entries[id] = prev.Clone()
	} else {
		delete(c.entries, id)
	}
	return true
}

// Clear drops every entry.
func (c *DraftCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*types.Draft)
}

// Snapshot returns a copy of every entry, keyed by candidate ID.
func (c *DraftCache) Snapshot() map[string]types.Draft {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.Draft, len(c.entries))
	for id, d := range c.entries {
		out[id] = *d
	}
	return out
}

// Len returns the number of entries.
func (c *DraftCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dirty reports whether the entry for id differs from snapshot, i.e. holds
// edits the queue payload does not know about.
func (c *DraftCache) Dirty(id string, snapshot *types.Draft) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[id]
	return ok && !d.Equal(snapshot)
}
