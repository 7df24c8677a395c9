package scheduler

import "runtime"

// worker runs tasks handed to it by the scheduler goroutine, one at a time,
// until told to stop (spec §5: "Workers are created eagerly... communicate
// with the scheduler via message queues").
type worker struct {
	id      int
	pinCore int // -1 means unpinned
	taskCh  chan *Task
	stopCh  chan struct{}
	doneCh  chan<- completion
}

type completion struct {
	workerID int
	task     *Task
	err      error
}

func newWorker(id, pinCore int, doneCh chan<- completion) *worker {
	return &worker{
		id:      id,
		pinCore: pinCore,
		taskCh:  make(chan *Task),
		stopCh:  make(chan struct{}),
		doneCh:  doneCh,
	}
}

func (w *worker) run() {
	if w.pinCore >= 0 {
		runtime.LockOSThread()
		_ = pinCurrentThread(w.pinCore)
	}
	for {
		select {
		case t := <-w.taskCh:
			err := t.Body()
			w.doneCh <- completion{workerID: w.id, task: t, err: err}
		case <-w.stopCh:
			return
		}
	}
}
