package tracing

import (
	"sync"

	"github.com/socforge/socforge/sim"
)

// AverageTimeTracer computes the average duration of the tasks that pass its
// filter.
type AverageTimeTracer struct {
	sync.Mutex

	timeTeller sim.TimeTeller
	filter     TaskFilter
	inflight   map[string]Task
	totalTime  sim.VTimeInSec
	count      uint64
}

// NewAverageTimeTracer creates an AverageTimeTracer. The filter decides which
// tasks contribute to the average.
func NewAverageTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *AverageTimeTracer {
	t := &AverageTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]Task),
	}

	return t
}

// AverageTime returns the mean duration of the completed tasks.
func (t *AverageTimeTracer) AverageTime() sim.VTimeInSec {
	t.Lock()
	defer t.Unlock()

	if t.count == 0 {
		return 0
	}

	return t.totalTime / sim.VTimeInSec(t.count)
}

// TotalCount returns the number of completed tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.Lock()
	defer t.Unlock()

	return t.count
}

// StartTask records the start of a task.
func (t *AverageTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	task.StartTime = t.timeTeller.CurrentTime()

	t.Lock()
	defer t.Unlock()

	t.inflight[task.ID] = task
}

// StepTask does nothing.
func (t *AverageTimeTracer) StepTask(_ Task) {
	// Do nothing.
}

// EndTask records the end of a task.
func (t *AverageTimeTracer) EndTask(task Task) {
	t.Lock()
	defer t.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)
	t.totalTime += t.timeTeller.CurrentTime() - started.StartTime
	t.count++
}
