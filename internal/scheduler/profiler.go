package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// schedulerTracer is the OTel tracer for task spans; it forwards to the
// no-op global provider until telemetry.Init is called.
var schedulerTracer = otel.Tracer("github.com/hustledb/hustle/scheduler")

var schedulerMetrics struct {
	taskDurationMs metric.Float64Histogram
	tasksCompleted metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/hustledb/hustle/scheduler")
	schedulerMetrics.taskDurationMs, _ = m.Float64Histogram("hustle.scheduler.task_duration_ms",
		metric.WithDescription("Task execution time"),
		metric.WithUnit("ms"),
	)
	schedulerMetrics.tasksCompleted, _ = m.Int64Counter("hustle.scheduler.tasks_completed",
		metric.WithDescription("Tasks completed, successfully or not"),
		metric.WithUnit("{task}"),
	)
}

// TaskEvent is one task's profiled execution window (spec §6.5 "Per-task
// events (description, worker_id, start_ns, end_ns)").
type TaskEvent struct {
	TaskID   ID
	WorkerID int
	TaskName string
	TaskType string
	StartNS  int64
	EndNS    int64
	Err      error
}

// Profiler keeps one event slice per worker id. Every event is recorded by
// the single scheduler goroutine when it receives a task's completion, so
// recording never takes a lock (spec §5 "no locks on the hot path").
type Profiler struct {
	enabled  bool
	capacity int
	perWorker [][]TaskEvent
	mu       sync.Mutex // guards only Summary()'s read pass, never the hot path
}

// NewProfiler allocates a profiler for numWorkers workers, each with room
// for capacity events before older entries are dropped (spec §6.4
// "Task-event recording capacity per worker").
func NewProfiler(numWorkers, capacity int, enabled bool) *Profiler {
	return &Profiler{
		enabled:   enabled,
		capacity:  capacity,
		perWorker: make([][]TaskEvent, numWorkers),
	}
}

// record appends an event to workerID's slice, evicting the oldest entry
// once capacity is reached. Must only be called from the scheduler
// goroutine.
func (p *Profiler) record(workerID int, ev TaskEvent) {
	if !p.enabled {
		return
	}
	slice := p.perWorker[workerID]
	if len(slice) >= p.capacity && p.capacity > 0 {
		slice = slice[1:]
	}
	p.perWorker[workerID] = append(slice, ev)
}

// Summary returns a snapshot of every worker's recorded events, for
// diagnostic/stderr reporting (spec §6.5 "Summary and per-query spans
// emitted to stderr on demand").
func (p *Profiler) Summary() [][]TaskEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]TaskEvent, len(p.perWorker))
	for i, s := range p.perWorker {
		out[i] = append([]TaskEvent(nil), s...)
	}
	return out
}

// startSpan opens an OTel span for a task, tagged with its description.
func startSpan(ctx context.Context, desc Description) (context.Context, trace.Span) {
	return schedulerTracer.Start(ctx, spanName(desc),
		trace.WithAttributes(
			attribute.String("hustle.task.type", desc.TaskType),
			attribute.String("hustle.task.name", desc.TaskName),
			attribute.Int64("hustle.task.major_id", desc.MajorID),
			attribute.String("hustle.plan.id", desc.PlanID),
		),
	)
}

func spanName(desc Description) string {
	if desc.TaskName != "" {
		return fmt.Sprintf("hustle.task.%s", desc.TaskName)
	}
	return "hustle.task"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
