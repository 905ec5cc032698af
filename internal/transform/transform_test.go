package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/confignode"
	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
	"github.com/l1jgo/entkit/internal/scripting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grid struct{ Cells []int }

func newTestApp(t *testing.T) (*app.App, *Transformer) {
	t.Helper()
	a := app.New(nil)
	require.NoError(t, a.AddPlugins(Plugin{}))
	t.Cleanup(a.Close)
	return a, ecs.MustResource[Transformer](a.World)
}

func TestTransformRunsOnceWhenInputLoads(t *testing.T) {
	a, tr := newTestApp(t)
	grids := asset.Store[grid](a.World)
	in := grids.Reserve()

	calls := 0
	out := TransformWithParams(tr, in, func(_ *ecs.World, g *grid, factor int) (string, error) {
		calls++
		parts := make([]string, len(g.Cells))
		for i, c := range g.Cells {
			parts[i] = strings.Repeat("#", c*factor)
		}
		return strings.Join(parts, "|"), nil
	}, 2)

	a.Update(0)
	assert.Zero(t, calls)
	assert.Equal(t, 1, tr.Pending())

	var loaded []asset.Loaded[string]
	event.Subscribe(a.Bus, func(ev asset.Loaded[string]) { loaded = append(loaded, ev) })

	grids.Insert(in, grid{Cells: []int{1, 2}})
	a.Update(0)
	a.Update(0)
	assert.Equal(t, 1, calls)
	assert.Zero(t, tr.Pending())

	got, ok := asset.Store[string](a.World).Get(out)
	require.True(t, ok)
	assert.Equal(t, "##|####", *got)
	require.Len(t, loaded, 1)
	assert.Equal(t, out, loaded[0].Handle)
}

func TestTransformChainsAndFailures(t *testing.T) {
	a, tr := newTestApp(t)
	in := asset.Store[grid](a.World).Add(grid{Cells: []int{3, 4}})

	sum := Transform(tr, in, func(_ *ecs.World, g *grid) (int, error) {
		return g.Cells[0] + g.Cells[1], nil
	})
	double := Transform(tr, sum, func(_ *ecs.World, n *int) (int, error) {
		return *n * 2, nil
	})
	broken := Transform(tr, in, func(*ecs.World, *grid) (float64, error) {
		return 0, errors.New("no")
	})

	a.Update(0)
	v, ok := asset.Store[int](a.World).Get(double)
	require.True(t, ok)
	assert.Equal(t, 14, *v)
	assert.False(t, asset.Store[float64](a.World).Contains(broken))
	assert.EqualValues(t, 1, tr.Failed())
	assert.Zero(t, tr.Pending())
}

func TestScriptTransform(t *testing.T) {
	a, tr := newTestApp(t)
	engine, err := scripting.NewEngine("", nil)
	require.NoError(t, err)
	defer engine.Close()
	require.NoError(t, engine.DoString(`
function buff(cfg)
  cfg.health = cfg.health + 50
  return cfg
end
`))

	node, err := confignode.Parse([]byte("health: 100\nname: troll\n"), confignode.YAML)
	require.NoError(t, err)
	in := asset.Store[confignode.Node](a.World).Add(node)
	out := Transform(tr, in, Script(engine, "buff"))
	missing := Transform(tr, in, Script(engine, "nope"))

	a.Update(0)
	got, ok := asset.Store[confignode.Node](a.World).Get(out)
	require.True(t, ok)
	hp, err := confignode.Query[int](*got, "/health")
	require.NoError(t, err)
	assert.Equal(t, 150, hp)
	name, err := confignode.Query[string](*got, "/name")
	require.NoError(t, err)
	assert.Equal(t, "troll", name)

	assert.False(t, asset.Store[confignode.Node](a.World).Contains(missing))
	assert.EqualValues(t, 1, tr.Failed())
}
