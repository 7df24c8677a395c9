package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hustledb/hustle/internal/scheduler"
)

func TestNewContinuationAllocatesUniqueContinuationID(t *testing.T) {
	a := scheduler.NewContinuation(1)
	b := scheduler.NewContinuation(1)

	assert.True(t, a.ID.IsContinuation())
	assert.True(t, b.ID.IsContinuation())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestContinuationIDDoesNotCollideWithTaskID(t *testing.T) {
	task := scheduler.NewTask(scheduler.Description{}, func() error { return nil })
	cont := scheduler.NewContinuation(0)

	assert.False(t, task.ID.IsContinuation())
	assert.True(t, cont.ID.IsContinuation())
}
