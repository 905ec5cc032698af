package injector

import (
	"context"
	"fmt"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/asyncsvc"
	"github.com/l1jgo/entkit/internal/config"
	"github.com/l1jgo/entkit/internal/confignode"
	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/handle"
	"github.com/l1jgo/entkit/internal/logging"
	"github.com/l1jgo/entkit/internal/persist"
	"github.com/l1jgo/entkit/internal/scripting"
	"github.com/l1jgo/entkit/internal/transform"
	"go.uber.org/zap"
)

// Runtime is a fully built application.
type Runtime struct {
	Config *config.Config
	Log    *zap.Logger
	App    *app.App
	Engine *scripting.Engine
}

func ProvideConfig(path string) (*config.Config, error) {
	return config.Load(path)
}

func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging)
}

func ProvideApp(log *zap.Logger) *app.App {
	return app.New(log)
}

// ProvideSource opens the asset source named by assets.source. The
// postgres source migrates the schema first.
func ProvideSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (asset.Source, func(), error) {
	switch cfg.Assets.Source {
	case "postgres":
		db, err := persist.NewDB(ctx, cfg.Database, log.Named("persist"))
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("asset store ready", zap.Int64("schema_version", version))
		return persist.NewAssetRepo(db), db.Close, nil
	default:
		return asset.FileSource{Root: cfg.Assets.Root}, func() {}, nil
	}
}

func ProvideEngine(cfg *config.Config, log *zap.Logger) (*scripting.Engine, func(), error) {
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return nil, nil, fmt.Errorf("scripting: %w", err)
	}
	return engine, engine.Close, nil
}

// ProvideRuntime installs every plugin into a.
func ProvideRuntime(cfg *config.Config, log *zap.Logger, a *app.App, src asset.Source, engine *scripting.Engine) (*Runtime, error) {
	policy, err := handle.ParsePrunePolicy(cfg.Handles.RegistryPolicy)
	if err != nil {
		return nil, err
	}
	err = a.AddPlugins(
		handle.Plugin{Policy: policy},
		asyncsvc.Plugin{QueueSize: cfg.Async.QueueSize},
		asset.Plugin{Options: asset.Options{
			Source:  src,
			Charset: cfg.Assets.Charset,
			Workers: cfg.Assets.LoadWorkers,
		}},
		confignode.Plugin{},
		transform.Plugin{},
	)
	if err != nil {
		return nil, err
	}
	ecs.SetResource(a.World, engine)
	return &Runtime{Config: cfg, Log: log, App: a, Engine: engine}, nil
}
