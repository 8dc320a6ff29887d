package profile

import (
	"slices"
	"sync"

	"github.com/mcoot/minimarket/internal/model"
)

// cache maps profile IDs to the most recent record the registry has seen.
// Records go in and come out as deep copies so nothing outside the registry
// shares its state.
type cache struct {
	mu      sync.Mutex
	order   []model.ProfileID
	records map[model.ProfileID]*model.Profile
}

func newCache() *cache {
	return &cache{records: make(map[model.ProfileID]*model.Profile)}
}

// Lookup returns a copy of the cached record
func (c *cache) Lookup(id model.ProfileID) (*model.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.records[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Contains reports whether id is cached without copying the record
func (c *cache) Contains(id model.ProfileID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.records[id]
	return ok
}

// Upsert replaces the entry with the same ID or appends a new one
func (c *cache) Upsert(p *model.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.records[p.ID] = p.Clone()
}

// Remove deletes the entry and reports whether it was present
func (c *cache) Remove(id model.ProfileID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[id]; !ok {
		return false
	}
	delete(c.records, id)
	c.order = slices.DeleteFunc(c.order, func(existing model.ProfileID) bool {
		return existing == id
	})
	return true
}

// List returns copies of every record in insertion order
func (c *cache) List() []*model.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.records[id].Clone())
	}
	return out
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.records = make(map[model.ProfileID]*model.Profile)
}
