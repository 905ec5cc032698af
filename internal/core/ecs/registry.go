package ecs

import "reflect"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Registry tracks all component stores, indexed by ComponentID, and
// supports bulk cleanup on entity destroy.
type Registry struct {
	stores []*ComponentStore // index = ComponentID-1
	byType map[reflect.Type]ComponentID
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]*ComponentStore, 0, 16),
		byType: make(map[reflect.Type]ComponentID, 16),
	}
}

// Register returns the store for typ, creating it on first use.
func (r *Registry) Register(typ reflect.Type) *ComponentStore {
	if cid, ok := r.byType[typ]; ok {
		return r.stores[cid-1]
	}
	cid := ComponentID(len(r.stores) + 1)
	s := newComponentStore(cid, typ)
	r.stores = append(r.stores, s)
	r.byType[typ] = cid
	return s
}

// Store returns the store for cid, or nil if cid was never registered.
func (r *Registry) Store(cid ComponentID) *ComponentStore {
	if cid == 0 || int(cid) > len(r.stores) {
		return nil
	}
	return r.stores[cid-1]
}

// Components lists the ComponentIDs id currently carries.
func (r *Registry) Components(id EntityID) []ComponentID {
	var out []ComponentID
	for _, s := range r.stores {
		if s.Has(id) {
			out = append(out, s.id)
		}
	}
	return out
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
