package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
	"github.com/l1jgo/entkit/internal/core/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type marker struct{}

type ping struct{ N int }

func TestUpdateFlushesAfterEachPhase(t *testing.T) {
	a := New(nil)

	var id ecs.EntityID
	var aliveInPost bool
	a.AddSystem(system.PhaseUpdate, "spawn", func(time.Duration) {
		if id.IsZero() {
			id = a.World.Commands().Spawn(marker{})
		}
	})
	a.AddSystem(system.PhasePostUpdate, "check", func(time.Duration) {
		aliveInPost = a.World.Alive(id)
	})

	a.Update(time.Millisecond)
	assert.True(t, aliveInPost)
	assert.Equal(t, uint64(1), a.Ticks())
}

func TestEventsDispatchedNextCycle(t *testing.T) {
	a := New(nil)
	var got []int
	event.Subscribe(a.Bus, func(p ping) { got = append(got, p.N) })

	event.Emit(a.Bus, ping{N: 1})
	a.Update(0)
	assert.Equal(t, []int{1}, got)

	a.Update(0)
	assert.Equal(t, []int{1}, got)
}

func TestAddPluginsStopsOnError(t *testing.T) {
	a := New(nil)
	boom := errors.New("boom")
	built := 0

	err := a.AddPlugins(
		PluginFunc(func(*App) error { built++; return nil }),
		PluginFunc(func(*App) error { return boom }),
		PluginFunc(func(*App) error { built++; return nil }),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, built)
}

func TestCloseRunsInReverse(t *testing.T) {
	a := New(nil)
	var order []int
	a.OnClose(func() { order = append(order, 1) })
	a.OnClose(func() { order = append(order, 2) })
	a.Close()
	assert.Equal(t, []int{2, 1}, order)
}

func TestRunStopsWithContext(t *testing.T) {
	a := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := a.Run(ctx, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, a.Ticks(), uint64(0))
}
