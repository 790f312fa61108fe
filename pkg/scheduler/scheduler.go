// Package scheduler implements the cooperative task scheduler shared by
// the evaluator and the VM. Zexus has no OS-thread concurrency: spawn
// enqueues a task in FIFO arrival order (§5), and Drain runs each
// task's whole action body to completion in a single turn — an await
// inside that body resolves synchronously, by spawning and draining
// the awaited coroutine before the body continues, rather than by
// yielding control back to the scheduler mid-body.
//
// Each task's actual work happens on its own goroutine, but the
// scheduler only ever lets one of them proceed at a time: a task must
// receive a token on its resume channel before doing any more work, and
// must send back on its yield channel before the scheduler will hand
// the token to anyone else. This mirrors the request/response actor
// loop used elsewhere in the pack for serializing concurrent access to
// a single logical resource, applied here to serialize whole task
// bodies instead of individual calls.
package scheduler

import (
	"github.com/zexus-lang/zexus/pkg/core/value"
)

// Step is what a task reports back to the scheduler each time it
// yields control, either mid-body or upon completion.
type Step struct {
	Done   bool
	Result value.Value
	Err    error
}

// Driver is supplied by whichever engine (tree-walking evaluator or
// bytecode VM) owns the task body. The engines' drivers run the whole
// body in one Advance and report Step{Done: true}, with awaits inside
// the body resolved inline before Advance returns. A Driver that
// reports Done: false is put back at the end of the queue by Drain.
type Driver interface {
	Advance() Step
}

// Task is one spawned coroutine (GLOSSARY: Task, Coroutine).
type Task struct {
	ID     int
	Value  *value.Coroutine
	driver Driver

	resume chan struct{}
	yield  chan Step

	state value.CoroutineState
}

func newTask(id int, d Driver) *Task {
	t := &Task{
		ID:     id,
		driver: d,
		resume: make(chan struct{}),
		yield:  make(chan Step),
		state:  value.CoroutinePending,
	}
	t.Value = &value.Coroutine{ID: id, State: value.CoroutinePending, Driver: t}
	return t
}

// run is the task's own goroutine body: wait for a resume token, drive
// the underlying engine by one turn, report the step, repeat until
// done. It never touches scheduler state directly.
func (t *Task) run() {
	for range t.resume {
		step := t.driver.Advance()
		t.yield <- step
		if step.Done {
			return
		}
	}
}

// Scheduler owns the FIFO ready queue and drives tasks to completion.
type Scheduler struct {
	nextID int
	ready  []*Task
	all    []*Task
}

func New() *Scheduler {
	return &Scheduler{}
}

// Spawn registers a new task and appends it to the ready queue in
// arrival order (§5: "spawn order is preserved").
func (s *Scheduler) Spawn(d Driver) *Task {
	s.nextID++
	t := newTask(s.nextID, d)
	go t.run()
	s.ready = append(s.ready, t)
	s.all = append(s.all, t)
	return t
}

// SpawnValue implements value.Scheduler: co is a pending coroutine
// produced by calling an async action (its Driver field holds the
// unexported call driver, not yet queued anywhere). Enqueuing it
// returns a fresh, live handle backed by a real Task; a coroutine
// that's already spawned (Driver is a *Task) or carries no driver at
// all passes through unchanged, so spawning twice is harmless.
func (s *Scheduler) SpawnValue(co *value.Coroutine) *value.Coroutine {
	d, ok := co.Driver.(Driver)
	if !ok {
		return co
	}
	return s.Spawn(d).Value
}

// Drain runs every ready task to completion in FIFO order (§5: "spawn
// order is preserved"). A task that yields without being Done goes to
// the back of the queue; Drain returns once none are left.
func (s *Scheduler) Drain() {
	for len(s.ready) > 0 {
		t := s.ready[0]
		s.ready = s.ready[1:]

		t.state = value.CoroutineRunning
		t.resume <- struct{}{}
		step := <-t.yield

		if step.Done {
			t.state = value.CoroutineDone
			if step.Err != nil {
				t.state = value.CoroutineFailed
			}
			t.Value.State = t.state
			t.Value.Result = step.Result
			t.Value.Err = step.Err
			continue
		}

		s.ready = append(s.ready, t)
	}
}
