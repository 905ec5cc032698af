//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"
)

func InitializeRuntime(ctx context.Context, configPath string) (*Runtime, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		ProvideApp,
		ProvideSource,
		ProvideEngine,
		ProvideRuntime,
	)
	return nil, nil, nil
}
