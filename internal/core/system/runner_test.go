package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var trace []string
	r := NewRunner(WithBarrier(func(p Phase) {
		trace = append(trace, "flush:"+p.String())
	}))

	record := func(name string) func(time.Duration) {
		return func(time.Duration) { trace = append(trace, name) }
	}
	r.Register(Func("reconcile", PhaseLast, record("reconcile")))
	r.Register(Func("logic-a", PhaseUpdate, record("logic-a")))
	r.Register(Func("logic-b", PhaseUpdate, record("logic-b")))
	r.Register(Func("assets", PhaseFirst, record("assets")))

	r.Tick(time.Millisecond)

	assert.Equal(t, []string{
		"assets", "flush:first",
		"logic-a", "logic-b", "flush:update",
		"reconcile", "flush:last",
	}, trace)
}

func TestRunnerTickPhase(t *testing.T) {
	calls := 0
	r := NewRunner()
	r.Register(Func("a", PhaseUpdate, func(time.Duration) { calls++ }))
	r.Register(Func("b", PhaseLast, func(time.Duration) { calls += 10 }))

	r.TickPhase(PhaseUpdate, 0)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, r.Len())
}
