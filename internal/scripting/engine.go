package scripting

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoFunction is returned by Call when the global is not a Lua function.
var ErrNoFunction = errors.New("lua function not found")

// Engine wraps a single gopher-lua VM. Calls are serialized by a mutex so
// transforms may run from any goroutine.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file below
// scriptsDir. A missing directory yields an empty engine.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if scriptsDir == "" {
		return e, nil
	}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory tree, in lexical order.
func (e *Engine) loadDir(dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".lua" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Strings(files)
	for _, path := range files {
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.DoString(src)
}

// HasFunction reports whether name is a global Lua function.
func (e *Engine) HasFunction(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Call invokes the global function name with value converted to Lua and
// converts its first result back to Go: tables become map[string]any or
// []any, numbers float64 or int64 when integral.
func (e *Engine) Call(name string, value any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFunction, name)
	}
	arg, err := toLua(e.vm, value)
	if err != nil {
		return nil, fmt.Errorf("lua %s argument: %w", name, err)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, arg); err != nil {
		return nil, fmt.Errorf("lua %s: %w", name, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return fromLua(result), nil
}

// Close shuts down the VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

func toLua(L *lua.LState, v any) (lua.LValue, error) {
	switch x := v.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(x), nil
	case string:
		return lua.LString(x), nil
	case int:
		return lua.LNumber(x), nil
	case int64:
		return lua.LNumber(x), nil
	case uint64:
		return lua.LNumber(x), nil
	case float64:
		return lua.LNumber(x), nil
	case []any:
		t := L.NewTable()
		for _, item := range x {
			lv, err := toLua(L, item)
			if err != nil {
				return nil, err
			}
			t.Append(lv)
		}
		return t, nil
	case map[string]any:
		t := L.NewTable()
		for k, item := range x {
			lv, err := toLua(L, item)
			if err != nil {
				return nil, err
			}
			t.RawSetString(k, lv)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func fromLua(v lua.LValue) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LString:
		return string(x)
	case lua.LNumber:
		f := float64(x)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case *lua.LTable:
		if n := x.Len(); n > 0 && x.MaxN() == n {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLua(x.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		x.ForEach(func(k, val lua.LValue) {
			out[k.String()] = fromLua(val)
		})
		return out
	}
	return v.String()
}
