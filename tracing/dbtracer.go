package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/socforge/socforge/datarecording"
	"github.com/socforge/socforge/sim"
)

// taskRow is the flattened form of a task that goes into the database.
type taskRow struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Where     string
	StartTime float64
	EndTime   float64
}

// DBTracer stores completed tasks in a database through a data recorder. A
// time range can be set so that only tasks overlapping the range are kept.
type DBTracer struct {
	sync.Mutex

	timeTeller sim.TimeTeller
	recorder   datarecording.DataRecorder

	startTime sim.VTimeInSec
	endTime   sim.VTimeInSec

	inflight map[string]Task
}

// NewDBTracer creates a DBTracer that writes completed tasks into the given
// recorder under the "trace" table.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	recorder datarecording.DataRecorder,
) *DBTracer {
	t := &DBTracer{
		timeTeller: timeTeller,
		recorder:   recorder,
		startTime:  -1,
		endTime:    -1,
		inflight:   make(map[string]Task),
	}

	recorder.CreateTable("trace", taskRow{})

	atexit.Register(func() { t.Terminate() })

	return t
}

// SetTimeRange narrows recording to tasks that overlap [start, end].
func (t *DBTracer) SetTimeRange(start, end sim.VTimeInSec) {
	t.Lock()
	defer t.Unlock()

	t.startTime = start
	t.endTime = end
}

// StartTask records the start of a task.
func (t *DBTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	t.Lock()
	defer t.Unlock()

	if t.endTime >= 0 && task.StartTime > t.endTime {
		return
	}

	t.inflight[task.ID] = task
}

// StepTask does nothing.
func (t *DBTracer) StepTask(_ Task) {
	// Do nothing.
}

// EndTask writes the completed task into the database.
func (t *DBTracer) EndTask(task Task) {
	t.Lock()
	defer t.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)
	started.EndTime = t.timeTeller.CurrentTime()

	if t.startTime >= 0 && started.EndTime < t.startTime {
		return
	}

	t.recorder.InsertData("trace", taskToRow(started))
}

// Terminate closes out every in-flight task at the current time, writes it
// into the database, and flushes the recorder.
func (t *DBTracer) Terminate() {
	t.Lock()
	defer t.Unlock()

	now := t.timeTeller.CurrentTime()
	for id, task := range t.inflight {
		task.EndTime = now
		t.recorder.InsertData("trace", taskToRow(task))
		delete(t.inflight, id)
	}

	t.recorder.Flush()
}

func taskToRow(task Task) taskRow {
	return taskRow{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Where:     task.Where,
		StartTime: float64(task.StartTime),
		EndTime:   float64(task.EndTime),
	}
}
