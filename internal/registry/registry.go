// Package registry indexes entities by the value of a key component, so a
// component like `type PlayerName string` can be used to look entities up.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
)

// ErrNotFound is returned when no entity carries the requested key.
var ErrNotFound = errors.New("registry: key not found")

// Registry maps key component values to the entity carrying them.
type Registry[K comparable] struct {
	mu   sync.RWMutex
	keys map[K]ecs.EntityID
}

// Get returns the entity registered for key.
func (r *Registry[K]) Get(key K) (ecs.EntityID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.keys[key]
	return e, ok
}

func (r *Registry[K]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func (r *Registry[K]) insert(key K, e ecs.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.keys[key]; ok && prev != e {
		panic(fmt.Sprintf("registry: key %v already held by %s, refusing %s", key, prev, e))
	}
	r.keys[key] = e
}

func (r *Registry[K]) remove(key K, e ecs.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys[key] == e {
		delete(r.keys, key)
	}
}

// Make installs a Registry[K] resource kept in sync with component K by
// world hooks. Calling Make twice for one K is a no-op.
func Make[K comparable](a *app.App) *Registry[K] {
	if r, ok := ecs.Resource[Registry[K]](a.World); ok {
		return r
	}
	r := &Registry[K]{keys: make(map[K]ecs.EntityID)}
	ecs.SetResource(a.World, r)

	cid := ecs.RegisterComponent[K](a.World)
	a.World.OnInsert(cid, func(w *ecs.World, e ecs.EntityID) {
		if k, ok := ecs.Get[K](w, e); ok {
			r.insert(*k, e)
		}
	})
	a.World.OnRemove(cid, func(w *ecs.World, e ecs.EntityID) {
		if k, ok := ecs.Get[K](w, e); ok {
			r.remove(*k, e)
		}
	})
	return r
}

// RegistryQuery reads component D of entities carrying key component K,
// looked up by key or iterated.
type RegistryQuery[K comparable, D any] struct {
	registry *Registry[K]
	inner    *ecs.Query[D]
}

// NewQuery builds a RegistryQuery restricted to entities with K. It panics
// if Make[K] was not called.
func NewQuery[K comparable, D any](w *ecs.World, opts ...ecs.QueryOption) *RegistryQuery[K, D] {
	r := ecs.MustResource[Registry[K]](w)
	opts = append([]ecs.QueryOption{ecs.With(ecs.RegisterComponent[K](w))}, opts...)
	return &RegistryQuery[K, D]{
		registry: r,
		inner:    ecs.NewQuery[D](w, opts...),
	}
}

// GetMut returns D of the entity keyed by key for in-place mutation.
func (q *RegistryQuery[K, D]) GetMut(key K) (*D, error) {
	e, ok := q.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, key)
	}
	d, err := q.inner.GetMut(e)
	if err != nil {
		return nil, fmt.Errorf("registry key %v: %w", key, err)
	}
	return d, nil
}

// Get returns a copy of D of the entity keyed by key.
func (q *RegistryQuery[K, D]) Get(key K) (D, error) {
	d, err := q.GetMut(key)
	if err != nil {
		var zero D
		return zero, err
	}
	return *d, nil
}

func (q *RegistryQuery[K, D]) Iter() iter.Seq2[ecs.EntityID, D] { return q.inner.Iter() }

func (q *RegistryQuery[K, D]) IterMut() iter.Seq2[ecs.EntityID, *D] { return q.inner.IterMut() }

func (q *RegistryQuery[K, D]) Count() int { return q.inner.Count() }
