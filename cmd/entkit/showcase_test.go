package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/injector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneYAML = `
scene:
  lifetime_ticks: 4
  enemies:
    alligator: {health: 100, damage: 10}
    slime: {health: 5, damage: 1}
  spawn: [alligator, slime, alligator, dragon]
`

const tuneLua = `
function tune_scene(cfg)
  cfg.scene.enemies.alligator.health = cfg.scene.enemies.alligator.health * 2
  return cfg
end
`

func newRuntime(t *testing.T, script string) *injector.Runtime {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "showcase.yml"), []byte(sceneYAML), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "tune.lua"), []byte(script), 0o644))
	}
	cfg := fmt.Sprintf("[assets]\nroot = %q\n\n[scripting]\ndir = %q\n\n[logging]\nlevel = \"error\"\n",
		filepath.Join(dir, "assets"), filepath.Join(dir, "scripts"))
	path := filepath.Join(dir, "entkit.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	rt, cleanup, err := injector.InitializeRuntime(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	t.Cleanup(rt.App.Close)
	return rt
}

func startShowcase(t *testing.T, rt *injector.Runtime) *showcase {
	t.Helper()
	sc := newShowcase(rt)
	require.NoError(t, sc.install("showcase.yml"))
	ecs.MustResource[asset.Server](rt.App.World).Wait()
	for i := 0; i < 5 && !sc.spawned; i++ {
		rt.App.Update(0)
	}
	require.True(t, sc.spawned)
	return sc
}

func TestShowcaseLifecycle(t *testing.T) {
	rt := newRuntime(t, "")
	sc := startShowcase(t, rt)
	w := rt.App.World

	rt.App.Update(0)
	r := countEnemies(w, struct{}{})
	assert.Equal(t, 2, r.Enemies)
	assert.Equal(t, 2, r.Managed)
	assert.Equal(t, 100, r.Alligator)
	assert.Len(t, sc.combat, 3)
	assert.Equal(t, sc.combat[0].Entity(), sc.combat[2].Entity())

	for i := 0; i < sc.life; i++ {
		rt.App.Update(0)
	}
	assert.Nil(t, sc.combat)
	assert.Nil(t, sc.display)
	r = countEnemies(w, struct{}{})
	assert.Zero(t, r.Enemies)
	assert.Zero(t, r.Managed)
	assert.Zero(t, r.Alligator)
}

func TestShowcaseScriptTuning(t *testing.T) {
	rt := newRuntime(t, tuneLua)
	startShowcase(t, rt)
	rt.App.Update(0)
	assert.Equal(t, 200, countEnemies(rt.App.World, struct{}{}).Alligator)
}

func TestShowcaseRejectsUnknownFormat(t *testing.T) {
	rt := newRuntime(t, "")
	assert.Error(t, newShowcase(rt).install("scene.ini"))
}
