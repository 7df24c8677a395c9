package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// msgKind tags the variants accepted on the scheduler's single message
// channel (spec §5 "communicate with the scheduler via message queues").
type msgKind uint8

const (
	msgSubmit msgKind = iota
	msgNewContinuation
	msgLink
	msgJoin
)

type msg struct {
	kind   msgKind
	task   *Task
	cont   *Continuation
	from   ID // producer continuation, for msgLink
	to     ID // dependent (task or continuation) id, for msgLink
	replyc chan error
}

// Scheduler arbitrates a fixed worker pool from a single goroutine (spec
// §5 "A single scheduler thread arbitrates"). All mutable scheduling state
// — the continuation graph, the ready queue, the idle-worker stack — is
// owned exclusively by that goroutine; every other caller communicates
// through msgCh.
type Scheduler struct {
	workers  []*worker
	doneCh   chan completion
	msgCh    chan msg
	profiler *Profiler
}

// Options configures New.
type Options struct {
	NumWorkers        int  // 0 uses runtime.NumCPU()
	PinCPUs           bool // spec §6.4 "CPU pinning"
	TaskEventCapacity int  // spec §6.4, per-worker profiler ring capacity
	Profiling         bool
}

// New starts numWorkers worker goroutines and the scheduler's run loop.
func New(opts Options) *Scheduler {
	n := opts.NumWorkers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	doneCh := make(chan completion, n)
	s := &Scheduler{
		doneCh:   doneCh,
		msgCh:    make(chan msg, 64),
		profiler: NewProfiler(n, opts.TaskEventCapacity, opts.Profiling),
	}
	for i := 0; i < n; i++ {
		pin := -1
		if opts.PinCPUs {
			pin = i % runtime.NumCPU()
		}
		w := newWorker(i, pin, doneCh)
		s.workers = append(s.workers, w)
		go w.run()
	}
	go s.run()
	return s
}

// Profiler exposes the scheduler's event recorder for diagnostic reporting.
func (s *Scheduler) Profiler() *Profiler { return s.profiler }

// NewContinuation allocates and registers a continuation with the given
// initial in-degree (spec §5 "Continuation").
func (s *Scheduler) NewContinuation(inDegree int) *Continuation {
	c := NewContinuation(inDegree)
	s.msgCh <- msg{kind: msgNewContinuation, cont: c}
	return c
}

// Link registers target as a dependent of producer: when producer's
// in-degree reaches zero, target is notified (decremented, if a
// continuation, or enqueued, if a task) (spec §4.10 "link c_op into
// c_exit" / "link c_producer into the consumer's task id").
func (s *Scheduler) Link(producer, target ID) {
	s.msgCh <- msg{kind: msgLink, from: producer, to: target}
}

// Submit schedules t. If t.Dependency is nonzero, t waits for that
// continuation to fire before becoming ready.
func (s *Scheduler) Submit(t *Task) {
	s.msgCh <- msg{kind: msgSubmit, task: t}
}

// Join stops accepting new work once the ready queue and every in-flight
// task have drained, then stops all workers (spec §5 "A join message halts
// new submissions... then sends stop messages to all workers"). It
// returns the first error captured from any task, if any.
func (s *Scheduler) Join() error {
	reply := make(chan error, 1)
	s.msgCh <- msg{kind: msgJoin, replyc: reply}
	return <-reply
}

// run is the single scheduler goroutine; it owns every field it touches
// below without further synchronization.
func (s *Scheduler) run() {
	continuations := make(map[ID]*Continuation)
	pending := make(map[ID]*Task) // tasks waiting on a continuation
	var ready []*Task
	idle := make([]int, 0, len(s.workers)) // every worker starts idle
	for i := range s.workers {
		idle = append(idle, i)
	}
	inFlight := 0
	var firstErr error
	var joinReply chan error
	joining := false
	spans := make(map[ID]spanState)

	dispatch := func() {
		for len(ready) > 0 && len(idle) > 0 {
			t := ready[0]
			ready = ready[1:]
			w := idle[len(idle)-1]
			idle = idle[:len(idle)-1]
			inFlight++
			_, span := startSpan(context.Background(), t.Description)
			spans[t.ID] = spanState{span: span, start: time.Now()}
			s.workers[w].taskCh <- t
		}
	}

	enqueueReady := func(t *Task) { ready = append(ready, t) }

	fireTask := func(id ID) {
		if t, ok := pending[id]; ok {
			delete(pending, id)
			enqueueReady(t)
		}
	}

	var fireContinuation func(id ID)
	fireContinuation = func(id ID) {
		c := continuations[id]
		if c == nil {
			return
		}
		for _, dep := range c.dependents {
			if dep.IsContinuation() {
				depCont := continuations[dep]
				if depCont != nil && depCont.satisfy() {
					fireContinuation(dep)
				}
			} else {
				fireTask(dep)
			}
		}
	}

	maybeReplyJoin := func() {
		if joining && inFlight == 0 && len(ready) == 0 {
			joinReply <- firstErr
			for _, w := range s.workers {
				close(w.stopCh)
			}
			joining = false
		}
	}

	for {
		select {
		case c := <-s.doneCh:
			inFlight--
			idle = append(idle, c.workerID)
			if st, ok := spans[c.task.ID]; ok {
				elapsedMs := float64(time.Since(st.start)) / float64(time.Millisecond)
				schedulerMetrics.taskDurationMs.Record(context.Background(), elapsedMs)
				schedulerMetrics.tasksCompleted.Add(context.Background(), 1)
				s.profiler.record(c.workerID, TaskEvent{
					TaskID: c.task.ID, WorkerID: c.workerID,
					TaskName: c.task.Description.TaskName, TaskType: c.task.Description.TaskType,
					StartNS: st.start.UnixNano(), EndNS: time.Now().UnixNano(), Err: c.err,
				})
				endSpan(st.span, c.err)
				delete(spans, c.task.ID)
			}
			if c.err != nil && firstErr == nil {
				firstErr = fmt.Errorf("hustle: task %v failed: %w", c.task.ID, c.err)
			}
			if c.task.Dependent != 0 {
				if dc := continuations[c.task.Dependent]; dc != nil && dc.satisfy() {
					fireContinuation(c.task.Dependent)
				}
			}
			dispatch()
			maybeReplyJoin()

		case m := <-s.msgCh:
			switch m.kind {
			case msgNewContinuation:
				continuations[m.cont.ID] = m.cont
				if m.cont.inDegree == 0 {
					m.cont.fired = true
				}
			case msgSubmit:
				t := m.task
				if t.Dependency == 0 {
					enqueueReady(t)
				} else if c := continuations[t.Dependency]; c != nil && c.fired {
					enqueueReady(t)
				} else if c != nil {
					c.AddDependent(t.ID)
					pending[t.ID] = t
				} else {
					// Dependency not registered: treat as immediately ready
					// rather than dropping the task silently.
					enqueueReady(t)
				}
			case msgLink:
				c := continuations[m.from]
				if c == nil {
					continue
				}
				if c.fired {
					if m.to.IsContinuation() {
						if dc := continuations[m.to]; dc != nil && dc.satisfy() {
							fireContinuation(m.to)
						}
					} else {
						fireTask(m.to)
					}
				} else {
					c.AddDependent(m.to)
				}
			case msgJoin:
				joining = true
				joinReply = m.replyc
			}
			dispatch()
			maybeReplyJoin()
		}
	}
}

type spanState struct {
	span  trace.Span
	start time.Time
}
