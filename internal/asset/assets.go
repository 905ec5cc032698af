// Package asset loads typed content addressed by path into per-type stores
// and announces completions on the event bus.
package asset

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/l1jgo/entkit/internal/core/ecs"
)

// Handle addresses one asset of type T. The zero Handle addresses nothing.
type Handle[T any] struct {
	id uuid.UUID
}

// HandleFromID rebuilds a handle from its id.
func HandleFromID[T any](id uuid.UUID) Handle[T] { return Handle[T]{id: id} }

func (h Handle[T]) ID() uuid.UUID { return h.id }
func (h Handle[T]) IsZero() bool  { return h.id == uuid.Nil }

func (h Handle[T]) String() string {
	return fmt.Sprintf("Handle<%s>(%s)", reflect.TypeFor[T](), h.id)
}

// Assets stores every loaded asset of type T. It is safe for concurrent use.
type Assets[T any] struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*T
}

func newAssets[T any]() *Assets[T] {
	return &Assets[T]{items: make(map[uuid.UUID]*T)}
}

// Reserve returns a fresh handle with no asset behind it yet.
func (a *Assets[T]) Reserve() Handle[T] {
	return Handle[T]{id: uuid.New()}
}

// Add stores v under a fresh handle.
func (a *Assets[T]) Add(v T) Handle[T] {
	h := a.Reserve()
	a.Insert(h, v)
	return h
}

// Insert stores v under h, replacing any previous value.
func (a *Assets[T]) Insert(h Handle[T], v T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[h.id] = &v
}

// Get returns the asset behind h.
func (a *Assets[T]) Get(h Handle[T]) (*T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.items[h.id]
	return v, ok
}

func (a *Assets[T]) Contains(h Handle[T]) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove drops the asset behind h and reports whether it was present.
func (a *Assets[T]) Remove(h Handle[T]) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.items[h.id]
	delete(a.items, h.id)
	return ok
}

func (a *Assets[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Store returns the Assets[T] resource of w, creating it on first use.
// Call it from setup code or the cycle goroutine.
func Store[T any](w *ecs.World) *Assets[T] {
	if a, ok := ecs.Resource[Assets[T]](w); ok {
		return a
	}
	a := newAssets[T]()
	ecs.SetResource(w, a)
	return a
}
