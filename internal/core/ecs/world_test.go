package ecs

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y int }

type velocity struct{ DX, DY int }

type tag struct{}

func TestEntityPoolGenerations(t *testing.T) {
	p := NewEntityPool()

	a := p.Create()
	assert.False(t, a.IsZero())
	assert.True(t, p.Alive(a))

	assert.True(t, p.Destroy(a))
	assert.False(t, p.Destroy(a))
	assert.False(t, p.Alive(a))

	// The slot is recycled with a new generation, stale ids stay dead
	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.NotEqual(t, a.Generation(), b.Generation())
	assert.False(t, p.Alive(a))
	assert.Equal(t, 1, p.Len())
}

func TestCommandsDeferStructuralChanges(t *testing.T) {
	w := NewWorld()
	cmds := w.Commands()

	id := cmds.Spawn(&position{X: 1, Y: 2}, tag{})
	assert.False(t, w.Alive(id), "spawn must wait for flush")
	assert.Equal(t, 1, cmds.Len())

	w.Flush()
	require.True(t, w.Alive(id))
	pos, ok := Get[position](w, id)
	require.True(t, ok)
	assert.Equal(t, position{X: 1, Y: 2}, *pos)
	assert.True(t, Has[tag](w, id))

	tagID, ok := ComponentIDOf[tag](w)
	require.True(t, ok)
	cmds.Remove(id, tagID)
	assert.True(t, Has[tag](w, id))
	w.Flush()
	assert.False(t, Has[tag](w, id))

	cmds.Despawn(id)
	cmds.Despawn(id)
	cmds.Insert(id, &velocity{DX: 1})
	w.Flush()
	assert.False(t, w.Alive(id))
	assert.False(t, Has[velocity](w, id))
}

func TestSpawnThenDespawnBeforeFlush(t *testing.T) {
	w := NewWorld()
	id := w.Commands().Spawn(&position{})
	w.Commands().Despawn(id)
	w.Flush()

	assert.False(t, w.Alive(id))
	assert.Equal(t, 0, w.Len())
}

func TestCommandsConcurrentProducers(t *testing.T) {
	w := NewWorld()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.Commands().Spawn(&position{X: j})
			}
		}()
	}
	wg.Wait()
	w.Flush()

	assert.Equal(t, 800, w.Len())
	assert.Equal(t, 800, NewQuery[position](w).Count())
}

func TestHooksSeeValueBeforeRemoval(t *testing.T) {
	w := NewWorld()
	cid := RegisterComponent[position](w)

	var inserted, removed []int
	w.OnInsert(cid, func(w *World, id EntityID) {
		p, _ := Get[position](w, id)
		inserted = append(inserted, p.X)
	})
	w.OnRemove(cid, func(w *World, id EntityID) {
		p, ok := Get[position](w, id)
		require.True(t, ok)
		removed = append(removed, p.X)
	})

	id := w.Spawn(&position{X: 1})
	w.Insert(id, &position{X: 2})
	w.Despawn(id)

	assert.Equal(t, []int{1, 2}, inserted)
	assert.Equal(t, []int{1, 2}, removed)
}

func TestQueryGetAndFilters(t *testing.T) {
	w := NewWorld()
	tagID := RegisterComponent[tag](w)

	a := w.Spawn(&position{X: 1}, tag{})
	b := w.Spawn(&position{X: 2})
	c := w.Spawn(&velocity{})

	q := NewQuery[position](w, With(tagID))
	got, err := q.Get(a)
	require.NoError(t, err)
	assert.Equal(t, 1, got.X)

	_, err = q.Get(b)
	assert.True(t, errors.Is(err, ErrQueryMismatch))
	_, err = q.Get(c)
	assert.True(t, errors.Is(err, ErrQueryMismatch))

	w.Despawn(a)
	_, err = q.Get(a)
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, a, qe.Entity)
	assert.True(t, errors.Is(err, ErrNoSuchEntity))

	without := NewQuery[position](w, Without(tagID))
	assert.Equal(t, 1, without.Count())
	assert.True(t, without.Contains(b))
}

func TestQueryIterMutIsVisible(t *testing.T) {
	w := NewWorld()
	a := w.Spawn(&position{X: 10})
	b := w.Spawn(&position{X: 20})

	q := NewQuery[position](w)
	for _, p := range q.IterMut() {
		p.X++
	}

	pa, _ := Get[position](w, a)
	pb, _ := Get[position](w, b)
	assert.Equal(t, 11, pa.X)
	assert.Equal(t, 21, pb.X)

	sum := 0
	for _, p := range q.Iter() {
		sum += p.X
	}
	assert.Equal(t, 32, sum)
}

func TestEach2(t *testing.T) {
	w := NewWorld()
	moving := w.Spawn(&position{}, &velocity{DX: 2, DY: 3})
	w.Spawn(&position{})

	Each2(w, func(_ EntityID, p *position, v *velocity) {
		p.X += v.DX
		p.Y += v.DY
	})

	p, _ := Get[position](w, moving)
	assert.Equal(t, position{X: 2, Y: 3}, *p)
}

func TestQuery2(t *testing.T) {
	w := NewWorld()
	tagID := RegisterComponent[tag](w)

	moving := w.Spawn(&position{X: 1}, &velocity{DX: 2})
	tagged := w.Spawn(&position{X: 5}, &velocity{DX: 1}, tag{})
	still := w.Spawn(&position{})
	for i := 0; i < 3; i++ {
		w.Spawn(&velocity{})
	}

	q := NewQuery2[position, velocity](w, Without(tagID))
	assert.Equal(t, 1, q.Count())
	for id, p := range q.IterMut() {
		assert.Equal(t, moving, id)
		p.First.X += p.Second.DX
	}
	pos, vel, err := q.Get(moving)
	require.NoError(t, err)
	assert.Equal(t, 3, pos.X)
	assert.Equal(t, 2, vel.DX)

	_, _, err = q.Get(tagged)
	assert.True(t, errors.Is(err, ErrQueryMismatch))
	_, _, err = q.GetMut(still)
	assert.True(t, errors.Is(err, ErrQueryMismatch))

	all := NewQuery2[position, velocity](w, With(tagID))
	seen := map[EntityID]Pair[position, velocity]{}
	for id, p := range all.Iter() {
		seen[id] = p
	}
	assert.Equal(t, map[EntityID]Pair[position, velocity]{
		tagged: {First: position{X: 5}, Second: velocity{DX: 1}},
	}, seen)

	w.Despawn(moving)
	_, _, err = q.Get(moving)
	assert.True(t, errors.Is(err, ErrNoSuchEntity))
}

func TestResources(t *testing.T) {
	w := NewWorld()
	_, ok := Resource[position](w)
	assert.False(t, ok)
	assert.Panics(t, func() { MustResource[position](w) })

	SetResource(w, &position{X: 7})
	assert.Equal(t, 7, MustResource[position](w).X)
}
