package confignode

import (
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

type cacheEntry struct {
	root  *yaml.Node
	path  string
	typ   reflect.Type
	value any
}

// Cache memoizes Query results per (node, pointer, type). Cached values are
// shared between callers and must be treated as read-only.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]cacheEntry
	hits    uint64
	misses  uint64
}

func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]cacheEntry)}
}

func cacheKey(pointer string, typ reflect.Type) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(pointer)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(typ.String())
	return d.Sum64()
}

// Resolve returns Query[T](n, pointer), decoding at most once per node.
// Errors are not cached.
func Resolve[T any](c *Cache, n Node, pointer string) (T, error) {
	typ := reflect.TypeFor[T]()
	key := cacheKey(pointer, typ)

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.root == n.root && e.path == pointer && e.typ == typ {
		c.hits++
		c.mu.Unlock()
		return e.value.(T), nil
	}
	c.misses++
	c.mu.Unlock()

	v, err := Query[T](n, pointer)
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{root: n.root, path: pointer, typ: typ, value: v}
	c.mu.Unlock()
	return v, nil
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
