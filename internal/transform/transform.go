// Package transform derives new assets from loaded ones. A transform is
// queued against an input handle and runs once, on the cycle goroutine,
// after the input is stored.
package transform

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/l1jgo/entkit/internal/asset"
	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
	"github.com/l1jgo/entkit/internal/core/system"
	"go.uber.org/zap"
)

// Func computes an output asset from a loaded input and its parameters.
type Func[S, T, P any] func(w *ecs.World, in *S, params P) (T, error)

// Transformer holds pending transform requests.
type Transformer struct {
	world *ecs.World
	bus   *event.Bus
	log   *zap.Logger

	mu      sync.Mutex
	pending []func(*ecs.World) bool
	failed  uint64
}

// NewTransformer creates a transformer bound to w.
func NewTransformer(w *ecs.World, log *zap.Logger) *Transformer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transformer{
		world: w,
		bus:   ecs.MustResource[event.Bus](w),
		log:   log,
	}
}

// TransformWithParams reserves an output handle and queues fn to fill it
// once in is loaded. When fn fails the error is logged and the output
// stays empty.
func TransformWithParams[S, T, P any](tr *Transformer, in asset.Handle[S], fn Func[S, T, P], params P) asset.Handle[T] {
	out := asset.Store[T](tr.world).Reserve()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.pending = append(tr.pending, func(w *ecs.World) bool {
		src, ok := asset.Store[S](w).Get(in)
		if !ok {
			return false
		}
		v, err := fn(w, src, params)
		if err != nil {
			tr.log.Warn("asset transform failed",
				zap.Stringer("input", in),
				zap.Stringer("output_type", reflect.TypeFor[T]()),
				zap.Error(err))
			tr.mu.Lock()
			tr.failed++
			tr.mu.Unlock()
			return true
		}
		asset.Store[T](w).Insert(out, v)
		event.Emit(tr.bus, asset.Loaded[T]{Handle: out})
		return true
	})
	return out
}

// Transform is TransformWithParams without parameters.
func Transform[S, T any](tr *Transformer, in asset.Handle[S], fn func(w *ecs.World, in *S) (T, error)) asset.Handle[T] {
	return TransformWithParams(tr, in, func(w *ecs.World, src *S, _ struct{}) (T, error) {
		return fn(w, src)
	}, struct{}{})
}

// Execute runs every request whose input is loaded and keeps the rest.
func (tr *Transformer) Execute(w *ecs.World) {
	tr.mu.Lock()
	batch := tr.pending
	tr.pending = nil
	tr.mu.Unlock()

	kept := batch[:0]
	for _, try := range batch {
		if !try(w) {
			kept = append(kept, try)
		}
	}

	tr.mu.Lock()
	tr.pending = append(kept, tr.pending...)
	tr.mu.Unlock()
}

// Pending returns the number of requests waiting for their input.
func (tr *Transformer) Pending() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.pending)
}

// Failed returns the number of requests dropped because their func failed.
func (tr *Transformer) Failed() uint64 {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.failed
}

func (tr *Transformer) String() string {
	return fmt.Sprintf("Transformer(pending=%d)", tr.Pending())
}

// Plugin installs the Transformer and runs it in PhasePostUpdate.
type Plugin struct{}

func (Plugin) Build(a *app.App) error {
	tr := NewTransformer(a.World, a.Log.Named("transform"))
	ecs.SetResource(a.World, tr)
	a.AddSystem(system.PhasePostUpdate, "asset_transform", func(time.Duration) {
		tr.Execute(a.World)
	})
	return nil
}
