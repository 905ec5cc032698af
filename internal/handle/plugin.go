package handle

import (
	"time"

	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/system"
	"go.uber.org/zap"
)

type pluginSettings struct {
	policy PrunePolicy
}

// Plugin installs the EntityHandler and its reconcile system, which runs in
// PhaseLast so that handles taken by any earlier system this cycle are
// counted. Policy is the default for identity types registered without
// WithPrunePolicy.
type Plugin struct {
	Policy PrunePolicy
}

func (p Plugin) Build(a *app.App) error {
	h := NewEntityHandler(a.Bus, a.Log.Named("handle"))
	ecs.SetResource(a.World, h)
	ecs.SetResource(a.World, newIntentRegistry())
	ecs.SetResource(a.World, &pluginSettings{policy: p.Policy})

	a.AddSystem(system.PhaseLast, "entity_handle_reconcile", func(time.Duration) {
		h.Execute(a.World.Commands())
	})
	a.OnClose(func() {
		st := h.Stats()
		a.Log.Info("entity handler closed",
			zap.Int("tracked_entities", st.TrackedEntities),
			zap.Uint64("despawned", st.Despawned))
		h.Close()
	})

	RegisterIntent[NoIntent](a)
	return nil
}
