package datarecording

import (
	"os"
	"strings"
	"time"
)

type runInfo struct {
	Property string
	Value    string
}

// A RunRecorder captures metadata about the hosting process into the
// run_info table, bracketing the run with start and end timestamps.
type RunRecorder struct {
	recorder DataRecorder
	entries  []runInfo
}

// NewRunRecorder creates a RunRecorder on the given recorder and declares
// its table.
func NewRunRecorder(recorder DataRecorder) *RunRecorder {
	r := &RunRecorder{recorder: recorder}
	r.recorder.CreateTable("run_info", runInfo{})

	return r
}

// Start captures the start time and the invocation of the process.
func (r *RunRecorder) Start() {
	r.entries = append(r.entries,
		runInfo{"StartTime", time.Now().Format(time.RFC3339Nano)},
		runInfo{"Command", strings.Join(os.Args, " ")},
	)

	if wd, err := os.Getwd(); err == nil {
		r.entries = append(r.entries, runInfo{"WorkingDirectory", wd})
	}
}

// End writes the captured entries and the end time.
func (r *RunRecorder) End() {
	for _, entry := range r.entries {
		r.recorder.InsertData("run_info", entry)
	}
	r.entries = nil

	r.recorder.InsertData("run_info",
		runInfo{"EndTime", time.Now().Format(time.RFC3339Nano)})

	r.recorder.Flush()
}
