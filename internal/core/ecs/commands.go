package ecs

import "sync"

type command func(w *World)

// Commands is the deferred-mutation queue of a World. Structural changes
// queued here are applied in order by World.Flush. Commands are safe for
// concurrent producers.
type Commands struct {
	mu    sync.Mutex
	world *World
	queue []command
}

func (c *Commands) push(cmd command) {
	c.mu.Lock()
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()
}

func (c *Commands) drain() []command {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.queue
	c.queue = nil
	return batch
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Spawn reserves an entity id now and queues its creation with the given
// components. The entity is alive after the next flush.
func (c *Commands) Spawn(components ...any) EntityID {
	id := c.world.reserve()
	c.push(func(w *World) {
		if w.activate(id) {
			w.Insert(id, components...)
		}
	})
	return id
}

// Insert queues attaching components to id.
func (c *Commands) Insert(id EntityID, components ...any) {
	c.push(func(w *World) {
		w.Insert(id, components...)
	})
}

// Remove queues detaching component cid from id.
func (c *Commands) Remove(id EntityID, cid ComponentID) {
	c.push(func(w *World) {
		w.RemoveByID(id, cid)
	})
}

// Despawn queues destruction of id.
func (c *Commands) Despawn(id EntityID) {
	c.push(func(w *World) {
		w.Despawn(id)
	})
}

// Queue defers an arbitrary world mutation to the next flush.
func (c *Commands) Queue(fn func(w *World)) {
	c.push(fn)
}
