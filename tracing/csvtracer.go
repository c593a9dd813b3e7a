package tracing

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/socforge/socforge/sim"
)

// CSVTracer writes completed tasks into a CSV file, one row per task.
type CSVTracer struct {
	sync.Mutex

	timeTeller sim.TimeTeller
	path       string
	file       *os.File
	writer     *csv.Writer
	inflight   map[string]Task
}

// NewCSVTracer creates a CSVTracer that writes to the file at the given path.
// A ".csv" suffix is appended when missing. If the path is empty, a unique
// file name is generated.
func NewCSVTracer(
	timeTeller sim.TimeTeller,
	path string,
) *CSVTracer {
	if path == "" {
		path = "socforge_trace_" + xid.New().String()
	}

	if !strings.HasSuffix(path, ".csv") {
		path += ".csv"
	}

	file, err := os.Create(path)
	if err != nil {
		log.Panicf("cannot create trace file %s: %s", path, err)
	}

	t := &CSVTracer{
		timeTeller: timeTeller,
		path:       path,
		file:       file,
		writer:     csv.NewWriter(file),
		inflight:   make(map[string]Task),
	}

	err = t.writer.Write([]string{
		"ID", "ParentID", "Kind", "What", "Where", "StartTime", "EndTime",
	})
	if err != nil {
		log.Panicf("cannot write trace header: %s", err)
	}

	atexit.Register(func() { t.Flush() })

	return t
}

// Path returns the path of the file the tracer writes to.
func (t *CSVTracer) Path() string {
	return t.path
}

// Flush forces buffered rows out to the file.
func (t *CSVTracer) Flush() {
	t.Lock()
	defer t.Unlock()

	t.writer.Flush()

	if err := t.writer.Error(); err != nil {
		log.Panicf("cannot flush trace file %s: %s", t.path, err)
	}
}

// StartTask records the start of a task.
func (t *CSVTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	t.Lock()
	defer t.Unlock()

	t.inflight[task.ID] = task
}

// StepTask does nothing.
func (t *CSVTracer) StepTask(_ Task) {
	// Do nothing.
}

// EndTask writes the completed task out as a row.
func (t *CSVTracer) EndTask(task Task) {
	t.Lock()
	defer t.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)
	started.EndTime = t.timeTeller.CurrentTime()

	err := t.writer.Write([]string{
		started.ID,
		started.ParentID,
		started.Kind,
		started.What,
		started.Where,
		fmt.Sprintf("%.10f", started.StartTime),
		fmt.Sprintf("%.10f", started.EndTime),
	})
	if err != nil {
		log.Panicf("cannot write trace row: %s", err)
	}
}
