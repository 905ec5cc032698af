package injector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/asyncsvc"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/handle"
	"github.com/l1jgo/entkit/internal/scripting"
	"github.com/l1jgo/entkit/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
[assets]
root = %q

[scripting]
dir = %q

[logging]
level = "warn"
%s`, filepath.Join(dir, "assets"), filepath.Join(dir, "scripts"), extra)
	p := filepath.Join(dir, "entkit.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestInitializeRuntime(t *testing.T) {
	rt, cleanup, err := InitializeRuntime(context.Background(), writeConfig(t, "[handles]\nregistry_policy = \"on_despawn\"\n"))
	require.NoError(t, err)
	defer cleanup()
	defer rt.App.Close()

	w := rt.App.World
	for name, ok := range map[string]bool{
		"handler":     has[handle.EntityHandler](w),
		"async":       has[asyncsvc.Service](w),
		"assets":      has[asset.Server](w),
		"transformer": has[transform.Transformer](w),
		"engine":      has[scripting.Engine](w),
	} {
		assert.True(t, ok, name)
	}

	type key string
	handle.RegisterEntityAssetID[key](rt.App)
	assert.Equal(t, handle.PruneOnDespawn, handle.NewEntityAssetServer[key](w).Registry().Policy())
}

func TestInitializeRuntimeErrors(t *testing.T) {
	_, _, err := InitializeRuntime(context.Background(), filepath.Join(t.TempDir(), "none.toml"))
	assert.Error(t, err)

	_, _, err = InitializeRuntime(context.Background(), writeConfig(t, "[app]\ntick_rate = \"-1s\"\n"))
	assert.Error(t, err)
}

func has[T any](w *ecs.World) bool {
	_, ok := ecs.Resource[T](w)
	return ok
}
