package transform

import (
	"fmt"

	"github.com/l1jgo/entkit/internal/confignode"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/scripting"
)

// Script adapts the global Lua function fn into a transform over config
// nodes. The node is passed to Lua as a table and the returned value
// becomes the new node.
func Script(engine *scripting.Engine, fn string) func(*ecs.World, *confignode.Node) (confignode.Node, error) {
	return func(_ *ecs.World, in *confignode.Node) (confignode.Node, error) {
		value, err := confignode.Query[any](*in, "")
		if err != nil {
			return confignode.Node{}, err
		}
		out, err := engine.Call(fn, value)
		if err != nil {
			return confignode.Node{}, fmt.Errorf("script transform: %w", err)
		}
		return confignode.FromValue(out)
	}
}
