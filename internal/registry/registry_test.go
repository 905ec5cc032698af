package registry

import (
	"errors"
	"testing"

	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type playerName string

type level struct{ N int }

type banned struct{}

func TestRegistryFollowsComponent(t *testing.T) {
	a := app.New(nil)
	r := Make[playerName](a)
	assert.Same(t, r, Make[playerName](a))

	e := a.World.Spawn(playerName("ayla"), &level{N: 3})
	got, ok := r.Get("ayla")
	require.True(t, ok)
	assert.Equal(t, e, got)

	// Renaming replaces the key.
	a.World.Insert(e, playerName("bryn"))
	_, ok = r.Get("ayla")
	assert.False(t, ok)
	got, ok = r.Get("bryn")
	require.True(t, ok)
	assert.Equal(t, e, got)

	ecs.Remove[playerName](a.World, e)
	assert.Equal(t, 0, r.Len())

	e2 := a.World.Spawn(playerName("cato"))
	a.World.Despawn(e2)
	assert.Equal(t, 0, r.Len())
}

func TestDuplicateKeyPanics(t *testing.T) {
	a := app.New(nil)
	Make[playerName](a)
	a.World.Spawn(playerName("ayla"))
	assert.Panics(t, func() { a.World.Spawn(playerName("ayla")) })
}

func TestRegistryQuery(t *testing.T) {
	a := app.New(nil)
	Make[playerName](a)
	bannedID := ecs.RegisterComponent[banned](a.World)

	a.World.Spawn(playerName("ayla"), &level{N: 3})
	a.World.Spawn(playerName("bryn"))
	a.World.Spawn(playerName("cato"), &level{N: 1}, banned{})

	q := NewQuery[playerName, level](a.World, ecs.Without(bannedID))
	lv, err := q.GetMut("ayla")
	require.NoError(t, err)
	lv.N++
	got, err := q.Get("ayla")
	require.NoError(t, err)
	assert.Equal(t, 4, got.N)

	_, err = q.Get("nobody")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = q.Get("bryn")
	var qe *ecs.QueryError
	require.True(t, errors.As(err, &qe))
	assert.True(t, errors.Is(err, ecs.ErrQueryMismatch))

	_, err = q.Get("cato")
	assert.True(t, errors.Is(err, ecs.ErrQueryMismatch))
}

func TestRegistryQueryIterSkipsUnkeyed(t *testing.T) {
	a := app.New(nil)
	Make[playerName](a)

	keyed := a.World.Spawn(playerName("ayla"), &level{N: 3})
	a.World.Spawn(&level{N: 9})

	q := NewQuery[playerName, level](a.World)
	assert.Equal(t, 1, q.Count())
	for e, lv := range q.IterMut() {
		assert.Equal(t, keyed, e)
		lv.N = 10
	}
	seen := map[ecs.EntityID]int{}
	for e, lv := range q.Iter() {
		seen[e] = lv.N
	}
	assert.Equal(t, map[ecs.EntityID]int{keyed: 10}, seen)
}

func TestQueryWithoutMakePanics(t *testing.T) {
	a := app.New(nil)
	assert.Panics(t, func() { NewQuery[playerName, level](a.World) })
}
