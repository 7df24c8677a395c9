// Package execplan implements the execution plan (spec §4.10): an ordered
// set of operators wired into the scheduler's continuation graph, with a
// dedicated entry and exit continuation bracketing the whole run.
package execplan

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hustledb/hustle/internal/operators"
	"github.com/hustledb/hustle/internal/scheduler"
)

// OpNode is one operator in the plan, addressed by a stable index so
// producer/consumer edges can reference it before it runs.
type OpNode struct {
	Name   string
	Op     operators.Operator
	Inputs []int // indices of producer OpNodes this one consumes, or nil for a root

	done   chan struct{} // closed once result/err are safe to read
	result operators.Result
	err    error
}

// Plan owns an ordered vector of operators plus the directed dependents
// relation between them (spec §4.10). Run submits one scheduler task per
// operator plus a final retire task, and waits for them on the caller's
// goroutine.
type Plan struct {
	sched *scheduler.Scheduler
	nodes []*OpNode

	rootInput operators.Result // fed to every node with no Inputs

	PlanID  string
	Elapsed time.Duration
	err     error
}

// New builds a plan over the given operator nodes, executed by sched.
func New(sched *scheduler.Scheduler, rootInput operators.Result, nodes []*OpNode) *Plan {
	for _, n := range nodes {
		n.done = make(chan struct{})
	}
	return &Plan{sched: sched, nodes: nodes, rootInput: rootInput}
}

// Run fires the plan and blocks until every operator (and the exit
// continuation) has completed, returning the last node's result or the
// first captured error (spec §4.10 "Fire c_enter" through "records the
// query's wall-clock span and retires the plan").
func (p *Plan) Run() (operators.Result, error) {
	start := time.Now()
	planID := uuid.New().String()
	p.PlanID = planID

	cEnter := p.sched.NewContinuation(0)
	cExit := p.sched.NewContinuation(len(p.nodes))

	opConts := make([]*scheduler.Continuation, len(p.nodes))
	for i, n := range p.nodes {
		// Each operator waits on a private barrier continuation counting one
		// producer edge per declared input, plus the plan's own entry edge
		// (spec §4.10 "For each (producer, consumer) edge, link c_producer
		// into the consumer's task id"); a root node (no Inputs) depends on
		// c_enter alone.
		barrier := p.sched.NewContinuation(1 + len(n.Inputs))
		opConts[i] = barrier

		idx := i
		node := n
		task := scheduler.NewTask(scheduler.Description{
			TaskType: "operator",
			TaskName: node.Name,
			PlanID:   planID,
		}, func() error {
			defer close(node.done)

			ins, err := p.collectInputs(node)
			if err != nil {
				node.err = fmt.Errorf("execplan: operator %q (index %d): upstream failed: %w", node.Name, idx, err)
				return node.err
			}

			out, err := node.Op.Run(operators.Concat(ins...))
			if err != nil {
				node.err = fmt.Errorf("execplan: operator %q (index %d): %w", node.Name, idx, err)
				return node.err
			}
			node.result = out
			return nil
		})
		task.Dependency = barrier.ID
		task.Dependent = cExit.ID
		p.sched.Submit(task)

		p.sched.Link(cEnter.ID, barrier.ID)
	}

	for i, n := range p.nodes {
		for _, producerIdx := range n.Inputs {
			p.sched.Link(opConts[producerIdx].ID, opConts[i].ID)
		}
	}

	done := make(chan struct{})
	final := scheduler.NewTask(scheduler.Description{TaskType: "plan", TaskName: "retire", PlanID: planID}, func() error {
		close(done)
		return nil
	})
	final.Dependency = cExit.ID
	p.sched.Submit(final)

	// cEnter has in-degree 0, so the scheduler marks it fired when it is
	// registered and each Link from it satisfies its barrier at once; it is
	// never fired explicitly.
	<-done
	p.Elapsed = time.Since(start)

	if len(p.nodes) == 0 {
		return p.rootInput, nil
	}
	last := p.nodes[len(p.nodes)-1]
	<-last.done
	if last.err != nil {
		return nil, last.err
	}
	return last.result, nil
}

// collectInputs waits for every declared producer of n to finish (spec §7:
// on a captured error, remaining continuations still fire so dependents
// unblock instead of hanging) and returns the first producer error, if any,
// instead of blocking forever on a producer that never writes a result.
func (p *Plan) collectInputs(n *OpNode) ([]operators.Result, error) {
	if len(n.Inputs) == 0 {
		return []operators.Result{p.rootInput}, nil
	}
	out := make([]operators.Result, len(n.Inputs))
	for i, producerIdx := range n.Inputs {
		producer := p.nodes[producerIdx]
		<-producer.done
		if producer.err != nil {
			return nil, producer.err
		}
		out[i] = producer.result
	}
	return out, nil
}
