package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start by the app.
type Bus struct {
	mu       sync.Mutex
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues an event into the back buffer (will be readable next tick).
// Safe from any goroutine.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeFor[T]()
	b.mu.Lock()
	b.back[t] = append(b.back[t], event)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeFor[T]()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Drain returns the front-buffer events of type T for pull-style consumers.
func Drain[T any](b *Bus) []T {
	b.mu.Lock()
	events := b.front[reflect.TypeFor[T]()]
	b.mu.Unlock()
	out := make([]T, len(events))
	for i, ev := range events {
		out[i] = ev.(T)
	}
	return out
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	type batch struct {
		events   []any
		handlers []func(any)
	}
	batches := make([]batch, 0, len(b.front))
	for t, events := range b.front {
		if hs := b.handlers[t]; len(hs) > 0 && len(events) > 0 {
			batches = append(batches, batch{
				events:   append([]any(nil), events...),
				handlers: append([]func(any)(nil), hs...),
			})
		}
	}
	b.mu.Unlock()

	for _, bt := range batches {
		for _, ev := range bt.events {
			for _, h := range bt.handlers {
				h(ev)
			}
		}
	}
}
