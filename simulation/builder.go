package simulation

import (
	"github.com/rs/xid"

	"github.com/socforge/socforge/datarecording"
	"github.com/socforge/socforge/monitoring"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	dashboardOpen  bool
	outputFileName string
}

// MakeBuilder creates a new builder with the default configuration. By
// default, monitoring is on and the output file name is derived from the
// run ID.
func MakeBuilder() Builder {
	return Builder{
		monitorOn: true,
	}
}

// WithoutMonitoring disables the monitoring server.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithDashboardAutoOpen opens the monitoring dashboard in a browser once
// the server is up.
func (b Builder) WithDashboardAutoOpen() Builder {
	b.dashboardOpen = true
	return b
}

// WithOutputFileName sets the custom output file name for the data
// recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.monitorOn && b.dashboardOpen {
		panic("dashboard cannot auto-open when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}

	s.id = xid.New().String()
	s.engine = sim.NewSerialEngine()

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "socforge_sim_" + s.id
	}
	s.dataRecorder = datarecording.New(outputPath)

	s.visTracer = tracing.NewDBTracer(s.engine, s.dataRecorder)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		if b.dashboardOpen {
			s.monitor.WithDashboardAutoOpen()
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.StartServer()
	}

	return s
}
