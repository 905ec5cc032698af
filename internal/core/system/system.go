package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseFirst      Phase = iota // 0: asset completions, event buffer swap
	PhasePreUpdate               // 1: setup work for this tick
	PhaseUpdate                  // 2: game logic, async bridge processors
	PhasePostUpdate              // 3: asset transforms, load callbacks
	PhaseLast                    // 4: handle reconciliation, final flush
)

func (p Phase) String() string {
	switch p {
	case PhaseFirst:
		return "first"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseLast:
		return "last"
	}
	return "unknown"
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Named is optionally implemented by systems for logging.
type Named interface {
	Name() string
}

type funcSystem struct {
	name  string
	phase Phase
	fn    func(dt time.Duration)
}

func (s *funcSystem) Phase() Phase            { return s.phase }
func (s *funcSystem) Update(dt time.Duration) { s.fn(dt) }
func (s *funcSystem) Name() string            { return s.name }

// Func adapts a plain function into a System.
func Func(name string, phase Phase, fn func(dt time.Duration)) System {
	return &funcSystem{name: name, phase: phase, fn: fn}
}
