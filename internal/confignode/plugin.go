package confignode

import (
	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"go.uber.org/zap"
)

// Resolver is the world resource QueryExtract works through.
type Resolver struct {
	Cache *Cache
	log   *zap.Logger
}

// Plugin registers the config loaders on the asset server. Add it after
// asset.Plugin and after loaders for more specific extensions.
type Plugin struct{}

func (Plugin) Build(a *app.App) error {
	srv := ecs.MustResource[asset.Server](a.World)
	asset.RegisterLoader(srv, []string{"yml", "yaml", "json", "toml"}, func(lc asset.LoadContext, data []byte) (Node, error) {
		format, err := FormatFromPath(lc.Path)
		if err != nil {
			return Node{}, err
		}
		text, err := lc.Text(data)
		if err != nil {
			return Node{}, err
		}
		return Parse(text, format)
	})
	ecs.SetResource(a.World, &Resolver{Cache: NewCache(), log: a.Log.Named("confignode")})
	return nil
}

// QueryExtract reserves a T and fills it from pointer once the config behind
// cfg loads. A failed query is logged and leaves the handle empty.
func QueryExtract[T any](w *ecs.World, cfg asset.Handle[Node], pointer string) asset.Handle[T] {
	srv := ecs.MustResource[asset.Server](w)
	res := ecs.MustResource[Resolver](w)
	out := asset.Store[T](w).Reserve()

	asset.OnLoadedWith(srv, cfg, pointer, func(w *ecs.World, in asset.OnLoaded[Node, string]) {
		v, err := Resolve[T](res.Cache, *in.Asset, in.Params)
		if err != nil {
			res.log.Warn("config extract failed",
				zap.Stringer("config", cfg),
				zap.String("pointer", in.Params),
				zap.Error(err))
			return
		}
		asset.Store[T](w).Insert(out, v)
	})
	return out
}
