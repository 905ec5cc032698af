package ecs

import (
	"errors"
	"fmt"
	"iter"
)

var (
	ErrNoSuchEntity  = errors.New("no such entity")
	ErrQueryMismatch = errors.New("entity does not match query")
)

// QueryError reports why a query lookup of Entity failed.
type QueryError struct {
	Entity EntityID
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query entity %s: %v", e.Entity, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// QueryOption narrows the entities a query matches.
type QueryOption func(*filter)

type filter struct {
	with    []ComponentID
	without []ComponentID
}

// With restricts a query to entities carrying every given component.
func With(cids ...ComponentID) QueryOption {
	return func(f *filter) { f.with = append(f.with, cids...) }
}

// Without excludes entities carrying any of the given components.
func Without(cids ...ComponentID) QueryOption {
	return func(f *filter) { f.without = append(f.without, cids...) }
}

func (f *filter) match(w *World, id EntityID) bool {
	for _, cid := range f.with {
		if !w.Has(id, cid) {
			return false
		}
	}
	for _, cid := range f.without {
		if w.Has(id, cid) {
			return false
		}
	}
	return true
}

// Query reads and writes component D of entities matching its filter.
// Iteration order is unspecified.
type Query[D any] struct {
	world  *World
	store  *ComponentStore
	filter filter
}

// NewQuery builds a query over component D.
func NewQuery[D any](w *World, opts ...QueryOption) *Query[D] {
	q := &Query[D]{
		world: w,
		store: w.registry.Store(RegisterComponent[D](w)),
	}
	for _, opt := range opts {
		opt(&q.filter)
	}
	return q
}

// GetMut returns a pointer to the component of id for in-place mutation.
func (q *Query[D]) GetMut(id EntityID) (*D, error) {
	if !q.world.Alive(id) {
		return nil, &QueryError{Entity: id, Err: ErrNoSuchEntity}
	}
	c, ok := q.store.get(id)
	if !ok || !q.filter.match(q.world, id) {
		return nil, &QueryError{Entity: id, Err: ErrQueryMismatch}
	}
	return c.(*D), nil
}

// Get returns a copy of the component of id.
func (q *Query[D]) Get(id EntityID) (D, error) {
	c, err := q.GetMut(id)
	if err != nil {
		var zero D
		return zero, err
	}
	return *c, nil
}

// Contains reports whether id matches the query.
func (q *Query[D]) Contains(id EntityID) bool {
	_, err := q.GetMut(id)
	return err == nil
}

// IterMut yields every matching entity with a pointer to its component.
func (q *Query[D]) IterMut() iter.Seq2[EntityID, *D] {
	return func(yield func(EntityID, *D) bool) {
		for id, c := range q.store.data {
			if !q.filter.match(q.world, id) {
				continue
			}
			if !yield(id, c.(*D)) {
				return
			}
		}
	}
}

// Iter yields every matching entity with a copy of its component.
func (q *Query[D]) Iter() iter.Seq2[EntityID, D] {
	return func(yield func(EntityID, D) bool) {
		for id, c := range q.IterMut() {
			if !yield(id, *c) {
				return
			}
		}
	}
}

// Count returns the number of matching entities.
func (q *Query[D]) Count() int {
	n := 0
	for range q.IterMut() {
		n++
	}
	return n
}

// Pair holds the two components of a Query2 match.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Query2 reads and writes components A and B of entities carrying both and
// matching its filter.
type Query2[A, B any] struct {
	world  *World
	sa, sb *ComponentStore
	filter filter
}

// NewQuery2 builds a query over components A and B.
func NewQuery2[A, B any](w *World, opts ...QueryOption) *Query2[A, B] {
	q := &Query2[A, B]{
		world: w,
		sa:    w.registry.Store(RegisterComponent[A](w)),
		sb:    w.registry.Store(RegisterComponent[B](w)),
	}
	for _, opt := range opts {
		opt(&q.filter)
	}
	return q
}

// GetMut returns pointers to both components of id.
func (q *Query2[A, B]) GetMut(id EntityID) (*A, *B, error) {
	if !q.world.Alive(id) {
		return nil, nil, &QueryError{Entity: id, Err: ErrNoSuchEntity}
	}
	a, okA := q.sa.get(id)
	b, okB := q.sb.get(id)
	if !okA || !okB || !q.filter.match(q.world, id) {
		return nil, nil, &QueryError{Entity: id, Err: ErrQueryMismatch}
	}
	return a.(*A), b.(*B), nil
}

// Get returns copies of both components of id.
func (q *Query2[A, B]) Get(id EntityID) (A, B, error) {
	a, b, err := q.GetMut(id)
	if err != nil {
		var za A
		var zb B
		return za, zb, err
	}
	return *a, *b, nil
}

// IterMut yields every match with pointers to its components. It walks the
// smaller store and probes the larger one.
func (q *Query2[A, B]) IterMut() iter.Seq2[EntityID, Pair[*A, *B]] {
	return func(yield func(EntityID, Pair[*A, *B]) bool) {
		small, large := q.sa, q.sb
		if small.Len() > large.Len() {
			small, large = large, small
		}
		for id, mine := range small.data {
			other, ok := large.data[id]
			if !ok || !q.filter.match(q.world, id) {
				continue
			}
			var p Pair[*A, *B]
			if small == q.sa {
				p = Pair[*A, *B]{First: mine.(*A), Second: other.(*B)}
			} else {
				p = Pair[*A, *B]{First: other.(*A), Second: mine.(*B)}
			}
			if !yield(id, p) {
				return
			}
		}
	}
}

// Iter yields every match with copies of its components.
func (q *Query2[A, B]) Iter() iter.Seq2[EntityID, Pair[A, B]] {
	return func(yield func(EntityID, Pair[A, B]) bool) {
		for id, p := range q.IterMut() {
			if !yield(id, Pair[A, B]{First: *p.First, Second: *p.Second}) {
				return
			}
		}
	}
}

// Count returns the number of matching entities.
func (q *Query2[A, B]) Count() int {
	n := 0
	for range q.IterMut() {
		n++
	}
	return n
}

// Each2 calls fn for every entity that has both component A and B.
func Each2[A, B any](w *World, fn func(EntityID, *A, *B)) {
	for id, p := range NewQuery2[A, B](w).IterMut() {
		fn(id, p.First, p.Second)
	}
}
