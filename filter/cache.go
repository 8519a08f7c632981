package filter

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// compileCache keeps recently compiled filters keyed by expression
type compileCache struct {
	items *lru.Cache[string, CompiledFilter]
}

// newCompileCache creates a cache holding up to size filters
func newCompileCache(size int) (*compileCache, error) {
	items, err := lru.New[string, CompiledFilter](size)
	if err != nil {
		return nil, err
	}
	return &compileCache{items: items}, nil
}

func (c *compileCache) Get(expression string) (CompiledFilter, bool) {
	return c.items.Get(expression)
}

func (c *compileCache) Put(expression string, filter CompiledFilter) {
	c.items.Add(expression, filter)
}

// Clear removes all items from the cache
func (c *compileCache) Clear() {
	c.items.Purge()
}

// Size returns the number of items in the cache
func (c *compileCache) Size() int {
	return c.items.Len()
}
