// Package scheduler implements the task-graph scheduler (spec §4.10/§5): a
// fixed worker pool, continuation-based join points, and a single
// arbitrating scheduler goroutine that turns satisfied dependencies into
// ready tasks.
package scheduler

import "sync/atomic"

// ID is a task or continuation identifier. The high bit distinguishes the
// two id spaces (spec §5 "Task"): continuation ids have it set.
type ID uint32

const continuationBit ID = 1 << 31

// IsContinuation reports whether id was allocated from the continuation
// counter rather than the task counter.
func (id ID) IsContinuation() bool { return id&continuationBit != 0 }

var (
	nextTaskID         uint32
	nextContinuationID uint32
)

func newTaskID() ID {
	return ID(atomic.AddUint32(&nextTaskID, 1))
}

func newContinuationID() ID {
	return continuationBit | ID(atomic.AddUint32(&nextContinuationID, 1))
}

// Description carries the metadata inherited by lambda-spawned children
// (spec §5 "Task"): whether to profile, whether a failure should cascade
// to siblings, and a human-readable task type/name pair used by the
// profiler.
type Description struct {
	Profiling bool
	Cascade   bool
	TaskType  string
	MajorID   int64
	TaskName  string
	// PlanID correlates every task spawned by one execplan.Plan run under
	// a single profiling span trace (a UUID minted once per plan).
	PlanID string
}

// Body is the work a task performs; an error fails the task, and the
// scheduler reports the first task error from Join (spec §7
// "Propagation"). Description.Cascade is not consulted for this.
type Body func() error

// Task is a unit of scheduled work: an optional dependency continuation it
// waits on, an optional dependent continuation it releases on completion,
// and a body.
type Task struct {
	ID          ID
	Description Description
	Dependency  ID // 0 means "no dependency"
	Dependent   ID // 0 means "no dependent"
	Body        Body
}

// NewTask allocates a task with a fresh id.
func NewTask(desc Description, body Body) *Task {
	return &Task{ID: newTaskID(), Description: desc, Body: body}
}
