package app

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
	"github.com/l1jgo/entkit/internal/core/system"
	"go.uber.org/zap"
)

// Plugin installs resources and systems into an App during setup.
type Plugin interface {
	Build(a *App) error
}

// PluginFunc adapts a function into a Plugin.
type PluginFunc func(a *App) error

func (f PluginFunc) Build(a *App) error { return f(a) }

// App owns the world, the system runner and the event bus. One Update call is
// one processing cycle: the bus swaps and dispatches, then every phase runs
// and deferred commands are flushed after each phase.
type App struct {
	World  *ecs.World
	Runner *system.Runner
	Bus    *event.Bus
	Log    *zap.Logger

	closers []func()
	ticks   uint64
}

// New creates an App. A nil logger disables logging.
func New(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		World: ecs.NewWorld(),
		Bus:   event.NewBus(),
		Log:   log,
	}
	a.Runner = system.NewRunner(system.WithBarrier(func(system.Phase) {
		a.World.Flush()
	}))
	ecs.SetResource(a.World, a.Bus)
	a.AddSystem(system.PhaseFirst, "event_dispatch", func(time.Duration) {
		a.Bus.SwapBuffers()
		a.Bus.DispatchAll()
	})
	return a
}

// AddPlugins builds plugins in order and stops at the first error.
func (a *App) AddPlugins(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Build(a); err != nil {
			return fmt.Errorf("build plugin %T: %w", p, err)
		}
	}
	return nil
}

// AddSystem registers fn to run every tick in phase.
func (a *App) AddSystem(phase system.Phase, name string, fn func(dt time.Duration)) {
	a.Runner.Register(system.Func(name, phase, fn))
}

// OnClose registers fn to run when the App is closed, in reverse order.
func (a *App) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Update runs one processing cycle.
func (a *App) Update(dt time.Duration) {
	a.ticks++
	a.Runner.Tick(dt)
}

// Ticks returns the number of completed cycles.
func (a *App) Ticks() uint64 { return a.ticks }

// Run ticks at tickRate until ctx is done.
func (a *App) Run(ctx context.Context, tickRate time.Duration) error {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			a.Update(now.Sub(last))
			last = now
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close runs registered closers in reverse registration order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.Log.Sync()
}
