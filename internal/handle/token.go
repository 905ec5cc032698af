package handle

import (
	"sync"
	"sync/atomic"

	"github.com/l1jgo/entkit/internal/core/ecs"
)

type dropEntityEvent struct {
	entity ecs.EntityID
}

type dropIntentEvent struct {
	entity ecs.EntityID
	marker ecs.ComponentID
}

// dropQueue is an unbounded multi-producer queue drained once per cycle by
// the reconciler. Sends after close are discarded.
type dropQueue[E any] struct {
	mu     sync.Mutex
	items  []E
	closed bool
}

func (q *dropQueue[E]) send(ev E) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, ev)
}

func (q *dropQueue[E]) drain() []E {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *dropQueue[E]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *dropQueue[E]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}

// token is a shared strong reference. When the last reference is released it
// sends its event exactly once. A token that reached zero never comes back:
// tryRetain fails and a fresh token must be created instead.
type token[E any] struct {
	refs  atomic.Int64
	event E
	drops *dropQueue[E]
}

func newToken[E any](event E, drops *dropQueue[E]) *token[E] {
	t := &token[E]{event: event, drops: drops}
	t.refs.Store(1)
	return t
}

// tryRetain adds a reference unless the count already dropped to zero.
func (t *token[E]) tryRetain() bool {
	for {
		n := t.refs.Load()
		if n <= 0 {
			return false
		}
		if t.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (t *token[E]) retain() {
	if t.refs.Add(1) <= 1 {
		panic("handle: retain of a released token")
	}
}

func (t *token[E]) release() {
	switch n := t.refs.Add(-1); {
	case n == 0:
		t.drops.send(t.event)
	case n < 0:
		panic("handle: token released more times than retained")
	}
}

func (t *token[E]) alive() bool {
	return t.refs.Load() > 0
}

func (t *token[E]) count() int64 {
	return t.refs.Load()
}
