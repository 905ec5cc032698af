package asset

import (
	"time"

	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/system"
)

// Plugin installs the Server. Decoded assets are stored in PhaseFirst and
// OnLoadedWith callbacks run in PhasePostUpdate.
type Plugin struct {
	Options Options
}

func (p Plugin) Build(a *app.App) error {
	srv := NewServer(a.World, p.Options, a.Log.Named("asset"))
	ecs.SetResource(a.World, srv)

	a.AddSystem(system.PhaseFirst, "asset_completions", func(time.Duration) {
		srv.Process(a.World)
	})
	a.AddSystem(system.PhasePostUpdate, "asset_on_loaded", func(time.Duration) {
		srv.RunCallbacks(a.World)
	})
	a.OnClose(srv.Close)
	return nil
}
