package scheduler

// Continuation is a named join point: a set of dependents (tasks or other
// continuations) that become eligible once the continuation's in-degree
// reaches zero (spec §5 "Continuation"). A continuation with no task body
// of its own — a "pure" continuation — only has a dependents list to walk.
type Continuation struct {
	ID         ID
	inDegree   int
	fired      bool
	dependents []ID // task or continuation ids waiting on this continuation
}

// NewContinuation allocates a continuation with a fresh id and the given
// initial in-degree (the number of tasks/continuations that must complete
// before it fires).
func NewContinuation(inDegree int) *Continuation {
	return &Continuation{ID: newContinuationID(), inDegree: inDegree}
}

// AddDependent registers id (a task or another continuation) to fire when
// this continuation is satisfied.
func (c *Continuation) AddDependent(id ID) {
	c.dependents = append(c.dependents, id)
}

// satisfy decrements the in-degree by one and reports whether it reached
// zero (the continuation fires exactly once, on the transition to zero).
func (c *Continuation) satisfy() bool {
	if c.fired {
		return false
	}
	c.inDegree--
	if c.inDegree <= 0 {
		c.fired = true
		return true
	}
	return false
}

// addDependency increments the in-degree by one. Scheduler.Link does not
// call it: a continuation's in-degree is set in full by NewContinuation.
func (c *Continuation) addDependency() {
	c.inDegree++
}
