package source

import (
	"sort"

	"github.com/patrickmn/go-cache"
)

// Cache keeps the last good Batch per source name. Entries never expire on
// their own; they are replaced by a newer batch or dropped by Invalidate and
// Flush.
type Cache struct {
	c *cache.Cache
}

func NewCache() *Cache {
	return &Cache{c: cache.New(cache.NoExpiration, 0)}
}

func (c *Cache) Get(name string) (Batch, bool) {
	v, ok := c.c.Get(name)
	if !ok {
		return Batch{}, false
	}
	return v.(Batch), true
}

func (c *Cache) Set(batch Batch) {
	c.c.Set(batch.Source.Name, batch, cache.NoExpiration)
}

// Invalidate drops the cached batch for one source.
func (c *Cache) Invalidate(name string) {
	c.c.Delete(name)
}

// Flush drops every cached batch.
func (c *Cache) Flush() {
	c.c.Flush()
}

// Names lists the cached source names in sorted order.
func (c *Cache) Names() []string {
	items := c.c.Items()
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
