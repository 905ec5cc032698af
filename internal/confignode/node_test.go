package confignode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enemy struct {
	Health int `yaml:"health"`
	Damage int `yaml:"damage"`
}

const enemiesYAML = `
enemies:
  alligator:
    health: 100
    damage: 10
  "a/b":
    health: 1
  "t~x":
    health: 2
waves: [3, 5, 8]
`

func mustParse(t *testing.T, data string, f Format) Node {
	t.Helper()
	n, err := Parse([]byte(data), f)
	require.NoError(t, err)
	return n
}

func TestQueryPointer(t *testing.T) {
	n := mustParse(t, enemiesYAML, YAML)

	al, err := Query[enemy](n, "/enemies/alligator")
	require.NoError(t, err)
	assert.Equal(t, enemy{Health: 100, Damage: 10}, al)

	hp, err := Query[int](n, "/enemies/a~1b/health")
	require.NoError(t, err)
	assert.Equal(t, 1, hp)
	hp, err = Query[int](n, "/enemies/t~0x/health")
	require.NoError(t, err)
	assert.Equal(t, 2, hp)

	wave, err := Query[int](n, "/waves/2")
	require.NoError(t, err)
	assert.Equal(t, 8, wave)

	all, err := Query[map[string]any](n, "")
	require.NoError(t, err)
	assert.Contains(t, all, "waves")

	for _, bad := range []string{"/waves/3", "/waves/01", "/waves/-1", "/nope", "/enemies/alligator/health/x"} {
		_, err := n.QueryRaw(bad)
		assert.ErrorIs(t, err, ErrNotFound, bad)
	}
	_, err = n.QueryRaw("enemies")
	assert.ErrorIs(t, err, ErrInvalidPointer)
	assert.True(t, n.Has("/waves"))
}

func TestQueryDecodeError(t *testing.T) {
	n := mustParse(t, enemiesYAML, YAML)
	_, err := Query[int](n, "/enemies")
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "/enemies", qe.Path)
	assert.Equal(t, "int", qe.Type)
}

func TestFormats(t *testing.T) {
	fromJSON := mustParse(t, `{"enemies": {"slime": {"health": 5, "damage": 1}}}`, JSON)
	fromTOML := mustParse(t, "[enemies.slime]\nhealth = 5\ndamage = 1\n", TOML)

	for _, n := range []Node{fromJSON, fromTOML} {
		got, err := Query[enemy](n, "/enemies/slime")
		require.NoError(t, err)
		assert.Equal(t, enemy{Health: 5, Damage: 1}, got)
	}

	_, err := Parse([]byte("a = "), TOML)
	assert.Error(t, err)
	_, err = Parse([]byte("x"), Format("ini"))
	assert.Error(t, err)

	empty := mustParse(t, "", YAML)
	assert.True(t, empty.Has(""))

	f, err := FormatFromPath("cfg/Game.YML")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)
	_, err = FormatFromPath("cfg/game.ini")
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	c := NewCache()
	n := mustParse(t, enemiesYAML, YAML)

	for i := 0; i < 3; i++ {
		got, err := Resolve[enemy](c, n, "/enemies/alligator")
		require.NoError(t, err)
		assert.Equal(t, 100, got.Health)
	}
	_, err := Resolve[int](c, n, "/enemies/alligator/health")
	require.NoError(t, err)
	hits, misses := c.Stats()
	assert.EqualValues(t, 2, hits)
	assert.EqualValues(t, 2, misses)
	assert.Equal(t, 2, c.Len())

	// A different tree under the same pointer is a miss.
	other := mustParse(t, "enemies: {alligator: {health: 7}}", YAML)
	got, err := Resolve[enemy](c, other, "/enemies/alligator")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Health)

	_, err = Resolve[enemy](c, n, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestQueryExtract(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yml"), []byte(enemiesYAML), 0o644))

	a := app.New(nil)
	require.NoError(t, a.AddPlugins(
		asset.Plugin{Options: asset.Options{Source: asset.FileSource{Root: root}}},
		Plugin{},
	))
	t.Cleanup(a.Close)
	srv := ecs.MustResource[asset.Server](a.World)

	cfg := asset.Load[Node](srv, "config.yml")
	al := QueryExtract[enemy](a.World, cfg, "/enemies/alligator")
	missing := QueryExtract[enemy](a.World, cfg, "/enemies/dragon")

	srv.Wait()
	a.Update(0)

	got, ok := asset.Store[enemy](a.World).Get(al)
	require.True(t, ok)
	assert.Equal(t, 100, got.Health)
	assert.False(t, asset.Store[enemy](a.World).Contains(missing))
	assert.Zero(t, srv.Pending())
}
