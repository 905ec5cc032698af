package main

import (
	"context"
	"time"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/asyncsvc"
	"github.com/l1jgo/entkit/internal/confignode"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
	"github.com/l1jgo/entkit/internal/core/system"
	"github.com/l1jgo/entkit/internal/handle"
	"github.com/l1jgo/entkit/internal/injector"
	"github.com/l1jgo/entkit/internal/registry"
	"github.com/l1jgo/entkit/internal/transform"
	"go.uber.org/zap"
)

// EnemyKind identifies one shared enemy entity per kind.
type EnemyKind string

// Name is the registry key for enemies.
type Name string

// Combat and Display are the two intents the showcase claims enemies under.
type (
	Combat  struct{}
	Display struct{}
)

type Enemy struct {
	Kind   EnemyKind
	Health int
	Damage int
}

type enemyStats struct {
	Health int `yaml:"health"`
	Damage int `yaml:"damage"`
}

type sceneSpec struct {
	Enemies  map[string]enemyStats `yaml:"enemies"`
	Spawn    []string              `yaml:"spawn"`
	Lifetime int                   `yaml:"lifetime_ticks"`
}

const (
	defaultLifetime = 100
	tuneFunction    = "tune_scene"
)

type sceneReport struct {
	Enemies   int
	Managed   int
	Alligator int
}

// showcase spawns the enemies named by a config asset, holds them for a
// number of ticks and then lets the handle reconciler clean them up.
// Its fields are touched from the cycle goroutine only.
type showcase struct {
	rt   *injector.Runtime
	log  *zap.Logger
	ents *handle.EntityAssetServer[EnemyKind]
	svc  *asyncsvc.Service

	combat  []*handle.EntityAssetHandle[EnemyKind, Combat]
	display []*handle.EntityHandle[Display]
	spawned bool
	age     int
	life    int
}

func newShowcase(rt *injector.Runtime) *showcase {
	return &showcase{rt: rt, log: rt.Log.Named("showcase")}
}

func (s *showcase) install(path string) error {
	if _, err := confignode.FormatFromPath(path); err != nil {
		return err
	}
	a := s.rt.App
	handle.RegisterIntent[Combat](a)
	handle.RegisterIntent[Display](a)
	handle.RegisterEntityAssetID[EnemyKind](a)
	registry.Make[Name](a)

	s.ents = handle.NewEntityAssetServer[EnemyKind](a.World)
	s.svc = ecs.MustResource[asyncsvc.Service](a.World)
	srv := ecs.MustResource[asset.Server](a.World)

	cfg := asset.Load[confignode.Node](srv, path)
	if s.rt.Engine.HasFunction(tuneFunction) {
		tr := ecs.MustResource[transform.Transformer](a.World)
		cfg = transform.Transform(tr, cfg, transform.Script(s.rt.Engine, tuneFunction))
		s.log.Info("scene tuned by script", zap.String("function", tuneFunction))
	}
	scene := confignode.QueryExtract[sceneSpec](a.World, cfg, "/scene")
	asset.WhenLoaded(srv, scene, s.spawn)

	event.Subscribe(a.Bus, func(ev asset.LoadFailed) {
		s.log.Warn("showcase asset failed", zap.String("path", ev.Path), zap.Error(ev.Err))
	})
	event.Subscribe(a.Bus, func(ev handle.EntityDespawned) {
		s.log.Info("enemy despawned", zap.Stringer("entity", ev.Entity))
	})
	a.AddSystem(system.PhaseUpdate, "showcase_lifetime", func(time.Duration) {
		s.tick()
	})
	return nil
}

func (s *showcase) spawn(w *ecs.World, spec *sceneSpec) {
	cmds := w.Commands()
	for _, kind := range spec.Spawn {
		stats, ok := spec.Enemies[kind]
		if !ok {
			s.log.Warn("unknown enemy kind", zap.String("kind", kind))
			continue
		}
		h := handle.GetAsset[EnemyKind, Combat](s.ents, EnemyKind(kind))
		cmds.Insert(h.Entity(), Enemy{Kind: EnemyKind(kind), Health: stats.Health, Damage: stats.Damage}, Name(kind))
		s.combat = append(s.combat, h)
	}
	if len(s.combat) > 0 {
		s.display = append(s.display, handle.ToManaged[Display](s.ents.EntityServer, s.combat[0].Entity()))
	}

	s.life = spec.Lifetime
	if s.life <= 0 {
		s.life = defaultLifetime
	}
	s.spawned = true
	s.log.Info("scene spawned",
		zap.Int("handles", len(s.combat)),
		zap.Int("kinds", s.ents.Registry().Len()),
		zap.Int("lifetime_ticks", s.life))
}

// tick releases the display claim halfway through the lifetime and every
// combat claim at its end.
func (s *showcase) tick() {
	if !s.spawned {
		return
	}
	s.age++
	switch s.age {
	case s.life / 2:
		for _, h := range s.display {
			h.Release()
		}
		s.display = nil
	case s.life:
		for _, h := range s.combat {
			h.Release()
		}
		s.combat = nil
		s.log.Info("scene released", zap.Int("age", s.age))
	}
}

func countEnemies(w *ecs.World, _ struct{}) sceneReport {
	r := sceneReport{
		Enemies: ecs.NewQuery[Enemy](w).Count(),
		Managed: ecs.MustResource[handle.EntityHandler](w).Stats().TrackedEntities,
	}
	if al, err := registry.NewQuery[Name, Enemy](w).Get("alligator"); err == nil {
		r.Alligator = al.Health
	}
	return r
}

// monitor samples the world from outside the cycle through the async
// service until ctx is done.
func (s *showcase) monitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r, err := asyncsvc.ExecSync(ctx, s.svc, countEnemies, struct{}{})
			if err != nil {
				s.log.Debug("monitor stopped", zap.Error(err))
				return
			}
			s.log.Info("scene",
				zap.Int("enemies", r.Enemies),
				zap.Int("managed", r.Managed),
				zap.Int("alligator_health", r.Alligator))
		case <-ctx.Done():
			return
		}
	}
}
