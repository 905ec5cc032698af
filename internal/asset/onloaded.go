package asset

import (
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
)

// OnLoaded is passed to callbacks registered with OnLoadedWith.
type OnLoaded[T, P any] struct {
	Asset  *T
	Params P
}

// AssetLoaded is emitted for an entity once AddWhenLoaded attached its asset.
type AssetLoaded[T any] struct {
	Entity ecs.EntityID
	Handle Handle[T]
}

// OnLoadedWith runs fn once, on the cycle goroutine, as soon as h is stored.
// A handle that never loads keeps its callback pending.
func OnLoadedWith[T, P any](s *Server, h Handle[T], params P, fn func(w *ecs.World, in OnLoaded[T, P])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = append(s.waiting, func(w *ecs.World) bool {
		v, ok := Store[T](w).Get(h)
		if !ok {
			return false
		}
		fn(w, OnLoaded[T, P]{Asset: v, Params: params})
		return true
	})
}

// WhenLoaded is OnLoadedWith without parameters.
func WhenLoaded[T any](s *Server, h Handle[T], fn func(w *ecs.World, asset *T)) {
	OnLoadedWith(s, h, struct{}{}, func(w *ecs.World, in OnLoaded[T, struct{}]) {
		fn(w, in.Asset)
	})
}

// AddWhenLoaded inserts a copy of the asset behind h as a component of e
// once it loads, then emits AssetLoaded[T].
func AddWhenLoaded[T any](s *Server, e ecs.EntityID, h Handle[T]) {
	OnLoadedWith(s, h, e, func(w *ecs.World, in OnLoaded[T, ecs.EntityID]) {
		v := *in.Asset
		w.Commands().Insert(in.Params, &v)
		event.Emit(s.bus, AssetLoaded[T]{Entity: in.Params, Handle: h})
	})
}

// Pending returns the number of callbacks still waiting for their asset.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiting)
}

// RunCallbacks runs every callback whose asset is present and keeps the
// rest. Callbacks may register new callbacks.
func (s *Server) RunCallbacks(w *ecs.World) {
	s.mu.Lock()
	batch := s.waiting
	s.waiting = nil
	s.mu.Unlock()

	kept := batch[:0]
	for _, try := range batch {
		if !try(w) {
			kept = append(kept, try)
		}
	}

	s.mu.Lock()
	s.waiting = append(kept, s.waiting...)
	s.mu.Unlock()
}
