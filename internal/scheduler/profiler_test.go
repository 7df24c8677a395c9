package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilerDisabledRecordsNothing(t *testing.T) {
	p := NewProfiler(1, 10, false)
	p.record(0, TaskEvent{TaskName: "x"})
	summary := p.Summary()
	require.Len(t, summary, 1)
	assert.Empty(t, summary[0])
}

func TestProfilerRecordsUpToCapacity(t *testing.T) {
	p := NewProfiler(1, 3, true)
	for i := 0; i < 3; i++ {
		p.record(0, TaskEvent{TaskName: "x"})
	}
	summary := p.Summary()
	assert.Len(t, summary[0], 3)
}

func TestProfilerEvictsOldestBeyondCapacity(t *testing.T) {
	p := NewProfiler(1, 2, true)
	p.record(0, TaskEvent{TaskID: 1})
	p.record(0, TaskEvent{TaskID: 2})
	p.record(0, TaskEvent{TaskID: 3})

	summary := p.Summary()
	require.Len(t, summary[0], 2)
	assert.EqualValues(t, 2, summary[0][0].TaskID)
	assert.EqualValues(t, 3, summary[0][1].TaskID)
}

func TestProfilerSummaryIsIndependentCopy(t *testing.T) {
	p := NewProfiler(1, 10, true)
	p.record(0, TaskEvent{TaskID: 1})

	summary := p.Summary()
	summary[0][0].TaskID = 99

	fresh := p.Summary()
	assert.EqualValues(t, 1, fresh[0][0].TaskID)
}

func TestStartSpanIncludesPlanID(t *testing.T) {
	_, span := startSpan(context.Background(), Description{TaskName: "t", PlanID: "plan-123"})
	require.NotNil(t, span)
	span.End()
}
