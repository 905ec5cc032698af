package ecs

import (
	"fmt"
	"reflect"
)

// ComponentID is the runtime identity of a component type within one World.
// IDs are assigned in registration order starting at 1.
type ComponentID uint32

// ComponentStore is a map store for one component type. Values are always
// pointers to the component type so systems can mutate them in place.
type ComponentStore struct {
	id   ComponentID
	typ  reflect.Type
	data map[EntityID]any
}

func newComponentStore(id ComponentID, typ reflect.Type) *ComponentStore {
	return &ComponentStore{
		id:   id,
		typ:  typ,
		data: make(map[EntityID]any, 64),
	}
}

func (s *ComponentStore) ID() ComponentID    { return s.id }
func (s *ComponentStore) Type() reflect.Type { return s.typ }

func (s *ComponentStore) set(id EntityID, ptr any) {
	s.data[id] = ptr
}

func (s *ComponentStore) get(id EntityID) (any, bool) {
	c, ok := s.data[id]
	return c, ok
}

// Remove drops the component of id. It satisfies Removable.
func (s *ComponentStore) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *ComponentStore) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *ComponentStore) Len() int {
	return len(s.data)
}

// RegisterComponent returns the ComponentID of T, assigning one on first use.
func RegisterComponent[T any](w *World) ComponentID {
	return w.ComponentIDOfType(reflect.TypeFor[T]())
}

// ComponentIDOf returns the ComponentID of T if it was registered.
func ComponentIDOf[T any](w *World) (ComponentID, bool) {
	cid, ok := w.registry.byType[reflect.TypeFor[T]()]
	return cid, ok
}

// componentValue normalizes a component argument into its type and a
// pointer to a value of that type. Non-pointer values are copied.
func componentValue(c any) (reflect.Type, any) {
	if c == nil {
		panic("ecs: nil component")
	}
	v := reflect.ValueOf(c)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			panic(fmt.Sprintf("ecs: nil component pointer %s", v.Type()))
		}
		return v.Type().Elem(), c
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return v.Type(), ptr.Interface()
}
