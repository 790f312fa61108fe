package scheduler_test

import (
	"testing"

	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/scheduler"
)

// countingDriver finishes after n Advance calls, each call bumping a
// shared trace slice so tests can assert interleaving order.
type countingDriver struct {
	name  string
	steps int
	trace *[]string
}

func (d *countingDriver) Advance() scheduler.Step {
	*d.trace = append(*d.trace, d.name)
	d.steps--
	if d.steps <= 0 {
		return scheduler.Step{Done: true, Result: value.NewInt(int64(len(*d.trace)))}
	}
	return scheduler.Step{Done: false}
}

func TestDrainRunsAllTasksToCompletion(t *testing.T) {
	sched := scheduler.New()
	var trace []string

	a := sched.Spawn(&countingDriver{name: "a", steps: 2, trace: &trace})
	b := sched.Spawn(&countingDriver{name: "b", steps: 1, trace: &trace})

	sched.Drain()

	if a.Value.State != value.CoroutineDone || b.Value.State != value.CoroutineDone {
		t.Fatalf("expected both tasks done, got a=%v b=%v", a.Value.State, b.Value.State)
	}
	// FIFO interleaving: a's first turn, b's first (and only) turn, then
	// a's second turn.
	want := []string{"a", "b", "a"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

// awaitingDriver spawns its target and drains it inline before
// reporting its own result, mirroring how the evaluator's and VM's
// real await handling resolves a coroutine synchronously rather than
// parking mid-body.
type awaitingDriver struct {
	sched  *scheduler.Scheduler
	target *value.Coroutine
}

func (d *awaitingDriver) Advance() scheduler.Step {
	live := d.sched.SpawnValue(d.target)
	d.sched.Drain()
	return scheduler.Step{Done: true, Result: live.Result, Err: live.Err}
}

func TestAwaitResolvesTargetSynchronously(t *testing.T) {
	sched := scheduler.New()
	var trace []string

	targetDriver := &countingDriver{name: "target", steps: 1, trace: &trace}
	pending := &value.Coroutine{State: value.CoroutinePending, Driver: targetDriver}
	waiter := sched.Spawn(&awaitingDriver{sched: sched, target: pending})

	sched.Drain()

	if waiter.Value.State != value.CoroutineDone {
		t.Fatalf("expected waiter done, got %v", waiter.Value.State)
	}
	if waiter.Value.Result.String() != "1" {
		t.Fatalf("expected waiter to observe target's result, got %v", waiter.Value.Result)
	}
}
