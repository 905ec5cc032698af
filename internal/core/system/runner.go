package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick. Systems of one phase run
// in registration order; the barrier runs after every phase.
type Runner struct {
	systems []System
	sorted  bool
	barrier func(Phase)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBarrier installs fn to run after each phase. The app uses it to flush
// deferred commands.
func WithBarrier(fn func(Phase)) RunnerOption {
	return func(r *Runner) { r.barrier = fn }
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		systems: make([]System, 0, 16),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for i := 0; i < len(r.systems); {
		phase := r.systems[i].Phase()
		for ; i < len(r.systems) && r.systems[i].Phase() == phase; i++ {
			r.systems[i].Update(dt)
		}
		if r.barrier != nil {
			r.barrier(phase)
		}
	}
}

// TickPhase runs only the systems of one phase, followed by the barrier.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
	if r.barrier != nil {
		r.barrier(phase)
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
