package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// Hook observes a structural change on one entity. Insert hooks run after
// the value is stored; remove hooks run while the value is still readable.
type Hook func(w *World, id EntityID)

// World is the top-level ECS container. It owns the entity pool, the component
// registry, the resources and the deferred Commands queue, which is applied by
// Flush at the flush points of each tick.
//
// Component data is single-goroutine: only the tick goroutine reads or writes
// it. Commands and entity reservation are safe from any goroutine.
type World struct {
	poolMu  sync.Mutex
	pool    *EntityPool
	pending map[EntityID]struct{} // reserved by Commands.Spawn, not yet flushed

	registry    *Registry
	resources   map[reflect.Type]any
	insertHooks map[ComponentID][]Hook
	removeHooks map[ComponentID][]Hook
	commands    *Commands
}

func NewWorld() *World {
	w := &World{
		pool:        NewEntityPool(),
		pending:     make(map[EntityID]struct{}),
		registry:    NewRegistry(),
		resources:   make(map[reflect.Type]any),
		insertHooks: make(map[ComponentID][]Hook),
		removeHooks: make(map[ComponentID][]Hook),
	}
	w.commands = &Commands{world: w}
	return w
}

func (w *World) Registry() *Registry { return w.registry }
func (w *World) Commands() *Commands { return w.commands }

// ComponentIDOfType returns the ComponentID of typ, registering it if needed.
func (w *World) ComponentIDOfType(typ reflect.Type) ComponentID {
	return w.registry.Register(typ).id
}

// ComponentName returns the Go type name registered under cid.
func (w *World) ComponentName(cid ComponentID) string {
	if s := w.registry.Store(cid); s != nil {
		return s.typ.String()
	}
	return fmt.Sprintf("component#%d", cid)
}

// OnInsert registers a hook fired after a component with cid is inserted.
func (w *World) OnInsert(cid ComponentID, h Hook) {
	w.insertHooks[cid] = append(w.insertHooks[cid], h)
}

// OnRemove registers a hook fired before a component with cid is removed,
// including removal caused by despawn.
func (w *World) OnRemove(cid ComponentID, h Hook) {
	w.removeHooks[cid] = append(w.removeHooks[cid], h)
}

// Alive reports whether id names a spawned, not yet despawned entity.
// Entities reserved by Commands.Spawn become alive at the next Flush.
func (w *World) Alive(id EntityID) bool {
	w.poolMu.Lock()
	defer w.poolMu.Unlock()
	if _, ok := w.pending[id]; ok {
		return false
	}
	return w.pool.Alive(id)
}

// Len returns the number of alive entities.
func (w *World) Len() int {
	w.poolMu.Lock()
	defer w.poolMu.Unlock()
	return w.pool.Len() - len(w.pending)
}

func (w *World) reserve() EntityID {
	w.poolMu.Lock()
	defer w.poolMu.Unlock()
	id := w.pool.Create()
	w.pending[id] = struct{}{}
	return id
}

func (w *World) activate(id EntityID) bool {
	w.poolMu.Lock()
	defer w.poolMu.Unlock()
	if _, ok := w.pending[id]; !ok {
		return false
	}
	delete(w.pending, id)
	return w.pool.Alive(id)
}

// Spawn creates an entity immediately with the given components.
func (w *World) Spawn(components ...any) EntityID {
	w.poolMu.Lock()
	id := w.pool.Create()
	w.poolMu.Unlock()
	w.Insert(id, components...)
	return id
}

// Insert attaches components to id immediately, replacing values of the same
// type. It is a no-op on dead entities.
func (w *World) Insert(id EntityID, components ...any) {
	if !w.Alive(id) {
		return
	}
	for _, c := range components {
		typ, ptr := componentValue(c)
		s := w.registry.Register(typ)
		if s.Has(id) {
			w.runHooks(w.removeHooks[s.id], id)
		}
		s.set(id, ptr)
		w.runHooks(w.insertHooks[s.id], id)
	}
}

// Has reports whether id carries the component cid.
func (w *World) Has(id EntityID, cid ComponentID) bool {
	s := w.registry.Store(cid)
	return s != nil && s.Has(id)
}

// RemoveByID detaches the component cid from id and reports whether it was present.
func (w *World) RemoveByID(id EntityID, cid ComponentID) bool {
	s := w.registry.Store(cid)
	if s == nil || !s.Has(id) {
		return false
	}
	w.runHooks(w.removeHooks[cid], id)
	s.Remove(id)
	return true
}

// Despawn destroys id and all of its components. Despawning a dead entity
// is a no-op that returns false.
func (w *World) Despawn(id EntityID) bool {
	if !w.Alive(id) {
		w.poolMu.Lock()
		_, reserved := w.pending[id]
		if reserved {
			delete(w.pending, id)
			w.pool.Destroy(id)
		}
		w.poolMu.Unlock()
		return false
	}
	for _, cid := range w.registry.Components(id) {
		w.runHooks(w.removeHooks[cid], id)
	}
	w.registry.RemoveAll(id)
	w.poolMu.Lock()
	ok := w.pool.Destroy(id)
	w.poolMu.Unlock()
	return ok
}

// Flush applies every queued command in FIFO order, including commands
// queued by hooks while flushing.
func (w *World) Flush() {
	for {
		batch := w.commands.drain()
		if len(batch) == 0 {
			return
		}
		for _, cmd := range batch {
			cmd(w)
		}
	}
}

func (w *World) runHooks(hooks []Hook, id EntityID) {
	for _, h := range hooks {
		h(w, id)
	}
}

// Get returns the component T of id.
func Get[T any](w *World, id EntityID) (*T, bool) {
	cid, ok := ComponentIDOf[T](w)
	if !ok {
		return nil, false
	}
	c, ok := w.registry.Store(cid).get(id)
	if !ok {
		return nil, false
	}
	return c.(*T), true
}

// Has reports whether id carries a component of type T.
func Has[T any](w *World, id EntityID) bool {
	cid, ok := ComponentIDOf[T](w)
	return ok && w.Has(id, cid)
}

// Remove detaches component T from id immediately.
func Remove[T any](w *World, id EntityID) bool {
	cid, ok := ComponentIDOf[T](w)
	return ok && w.RemoveByID(id, cid)
}

// SetResource stores r as the World's single resource of type T.
func SetResource[T any](w *World, r *T) {
	w.resources[reflect.TypeFor[T]()] = r
}

// Resource returns the resource of type T.
func Resource[T any](w *World) (*T, bool) {
	r, ok := w.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

// MustResource returns the resource of type T and panics if it is missing,
// which signals a plugin registration order mistake.
func MustResource[T any](w *World) *T {
	r, ok := Resource[T](w)
	if !ok {
		panic(fmt.Sprintf("ecs: resource %s not initialized", reflect.TypeFor[T]()))
	}
	return r
}
