// Package asyncsvc lets goroutines outside the cycle run a function against
// the world on the cycle goroutine and wait for its result.
package asyncsvc

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/system"
	"go.uber.org/zap"
)

// ErrClosed is returned by ExecSync once the service has shut down.
var ErrClosed = errors.New("asyncsvc: service closed")

const defaultQueueSize = 64

type bridgeKey struct {
	in, out reflect.Type
}

type request[I, O any] struct {
	fn    func(*ecs.World, I) O
	input I
	reply chan O
}

// bridge carries requests of one (I, O) pair to the cycle goroutine. Every
// request brings its own reply channel.
type bridge[I, O any] struct {
	requests chan request[I, O]
}

func (b *bridge[I, O]) process(w *ecs.World) {
	for {
		select {
		case req := <-b.requests:
			req.reply <- req.fn(w, req.input)
		default:
			return
		}
	}
}

// Service owns the registration channel. Bridges and processors are only
// touched by Execute, on the cycle goroutine.
type Service struct {
	registrations chan func(*ecs.World)
	queueSize     int

	bridges    map[bridgeKey]any
	processors []func(*ecs.World)

	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

// NewService creates a service whose queues hold queueSize pending items.
func NewService(queueSize int, log *zap.Logger) *Service {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		registrations: make(chan func(*ecs.World), queueSize),
		queueSize:     queueSize,
		bridges:       make(map[bridgeKey]any),
		done:          make(chan struct{}),
		log:           log,
	}
}

// bridgeFor returns the bridge for (I, O), creating it and its processor on
// first use. Cycle goroutine only.
func bridgeFor[I, O any](s *Service) *bridge[I, O] {
	key := bridgeKey{in: reflect.TypeFor[I](), out: reflect.TypeFor[O]()}
	if b, ok := s.bridges[key]; ok {
		return b.(*bridge[I, O])
	}
	b := &bridge[I, O]{requests: make(chan request[I, O], s.queueSize)}
	s.bridges[key] = b
	s.processors = append(s.processors, b.process)
	s.log.Debug("bridge registered",
		zap.Stringer("in", key.in),
		zap.Stringer("out", key.out))
	return b
}

// ExecSync runs fn(world, input) during the next Execute and returns its
// output. It must not be called from the cycle goroutine, which would wait
// on itself. Without a deadline on ctx the call waits as long as the cycle
// is not running.
func ExecSync[I, O any](ctx context.Context, s *Service, fn func(*ecs.World, I) O, input I) (O, error) {
	var zero O

	ack := make(chan *bridge[I, O], 1)
	reg := func(*ecs.World) { ack <- bridgeFor[I, O](s) }
	select {
	case s.registrations <- reg:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrClosed
	}

	var b *bridge[I, O]
	select {
	case b = <-ack:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrClosed
	}

	reply := make(chan O, 1)
	select {
	case b.requests <- request[I, O]{fn: fn, input: input, reply: reply}:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrClosed
	}

	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrClosed
	}
}

// Execute drains pending registrations, then lets every bridge answer its
// queued requests.
func (s *Service) Execute(w *ecs.World) {
	for drained := false; !drained; {
		select {
		case reg := <-s.registrations:
			reg(w)
		default:
			drained = true
		}
	}
	for _, proc := range s.processors {
		proc(w)
	}
}

// Bridges returns the number of registered (input, output) pairs.
func (s *Service) Bridges() int { return len(s.processors) }

// Close wakes every waiting caller with ErrClosed.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Plugin installs the Service and runs it in PhaseUpdate.
type Plugin struct {
	QueueSize int
}

func (p Plugin) Build(a *app.App) error {
	svc := NewService(p.QueueSize, a.Log.Named("asyncsvc"))
	ecs.SetResource(a.World, svc)
	a.AddSystem(system.PhaseUpdate, "async_service", func(time.Duration) {
		svc.Execute(a.World)
	})
	a.OnClose(svc.Close)
	return nil
}
