package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineLoadsScriptsAndCalls(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "enemy"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enemy", "scale.lua"), []byte(`
function scale_enemy(e)
  return { health = e.health * 2, name = string.upper(e.name), tags = { "boss", "big" } }
end
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644))

	e, err := NewEngine(dir, nil)
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, e.HasFunction("scale_enemy"))
	assert.False(t, e.HasFunction("missing"))

	out, err := e.Call("scale_enemy", map[string]any{"health": 50, "name": "slime"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"health": int64(100),
		"name":   "SLIME",
		"tags":   []any{"boss", "big"},
	}, out)
}

func TestEngineErrors(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Call("nothing", nil)
	assert.ErrorIs(t, err, ErrNoFunction)

	require.NoError(t, e.DoString(`function boom(x) error("bad input") end`))
	_, err = e.Call("boom", 1)
	assert.ErrorContains(t, err, "bad input")

	require.NoError(t, e.DoString(`function id(x) return x end`))
	_, err = e.Call("id", struct{}{})
	assert.Error(t, err)

	half, err := e.Call("id", 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, half)

	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "bad.lua"), []byte("function ("), 0o644))
	_, err = NewEngine(broken, nil)
	assert.Error(t, err)
}
