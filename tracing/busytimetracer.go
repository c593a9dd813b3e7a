package tracing

import (
	"sort"
	"sync"

	"github.com/socforge/socforge/sim"
)

type interval struct {
	start, end sim.VTimeInSec
}

// BusyTimeTracer measures the total time a domain has at least one task in
// flight. Overlapping tasks are only counted once.
type BusyTimeTracer struct {
	sync.Mutex

	timeTeller sim.TimeTeller
	filter     TaskFilter
	inflight   map[string]Task
	completed  []interval
}

// NewBusyTimeTracer creates a BusyTimeTracer. The filter decides which tasks
// contribute to the busy time.
func NewBusyTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	t := &BusyTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]Task),
	}

	return t
}

// BusyTime returns the amount of time that the domain was busy, with
// overlapping task intervals merged.
func (t *BusyTimeTracer) BusyTime() sim.VTimeInSec {
	t.Lock()
	defer t.Unlock()

	intervals := make([]interval, len(t.completed))
	copy(intervals, t.completed)

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	busy := sim.VTimeInSec(0)
	for i := 0; i < len(intervals); i++ {
		curr := intervals[i]

		for i+1 < len(intervals) && intervals[i+1].start <= curr.end {
			i++
			if intervals[i].end > curr.end {
				curr.end = intervals[i].end
			}
		}

		busy += curr.end - curr.start
	}

	return busy
}

// TerminateAllTasks closes out every in-flight task at the given time.
func (t *BusyTimeTracer) TerminateAllTasks(now sim.VTimeInSec) {
	t.Lock()
	defer t.Unlock()

	for id, task := range t.inflight {
		t.completed = append(t.completed, interval{
			start: task.StartTime,
			end:   now,
		})
		delete(t.inflight, id)
	}
}

// StartTask records the start of a task.
func (t *BusyTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	task.StartTime = t.timeTeller.CurrentTime()

	t.Lock()
	defer t.Unlock()

	t.inflight[task.ID] = task
}

// StepTask does nothing.
func (t *BusyTimeTracer) StepTask(_ Task) {
	// Do nothing.
}

// EndTask records the end of a task.
func (t *BusyTimeTracer) EndTask(task Task) {
	t.Lock()
	defer t.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)
	t.completed = append(t.completed, interval{
		start: started.StartTime,
		end:   t.timeTeller.CurrentTime(),
	})
}
