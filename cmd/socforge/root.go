package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/socforge/socforge/fabric"
	"github.com/socforge/socforge/sim"
	"github.com/socforge/socforge/simulation"
	"github.com/socforge/socforge/soc"
)

var rootCmd = &cobra.Command{
	Use:   "socforge",
	Short: "Socforge composes system-on-chip models and runs them.",
	Long: `Socforge composes system-on-chip models from allocation profiles. It can
export the resolved allocation tables, run the built-in memory self-test, and
serve the inspection dashboard against a live model.

A .env file in the working directory provides defaults: SOCFORGE_OUTPUT names
the run database and SOCFORGE_MONITOR_PORT fixes the dashboard port.`,
	SilenceUsage: true,
}

var (
	clockMHz       uint64
	baud           uint64
	arbitration    string
	selfTestDomain string
	randomSelfTest bool
	flashMode      string
	ethernet       bool
	etherbone      bool
	output         string
)

// Execute loads the environment defaults and runs the selected subcommand.
func Execute() {
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Uint64Var(&clockMHz, "clock-mhz", 100,
		"system clock frequency in MHz")
	flags.Uint64Var(&baud, "baud", 115200,
		"console line rate in bits per second")
	flags.StringVar(&arbitration, "arbitration", "round-robin",
		"fabric arbitration, round-robin or priority")
	flags.StringVar(&selfTestDomain, "selftest-domain", "sys",
		"clock domain of the self-test pair, sys or clk50")
	flags.BoolVar(&randomSelfTest, "selftest-random", false,
		"pseudo-random self-test addressing")
	flags.StringVar(&flashMode, "flash-mode", "1x",
		"flash I/O width, 1x or 4x")
	flags.BoolVar(&ethernet, "ethernet", false,
		"enable the Ethernet variant")
	flags.BoolVar(&etherbone, "etherbone", false,
		"enable the remote-bus variant")
	flags.StringVar(&output, "output", "",
		"run database file name, without extension")
}

// composeChip builds a chip from the flag settings. The monitor is raised
// only for the serve subcommand.
func composeChip(monitored bool) (*soc.SoC, *simulation.Simulation, error) {
	arb, err := arbitrationValue()
	if err != nil {
		return nil, nil, err
	}

	simBuilder := simulation.MakeBuilder()
	if monitored {
		if servePort > 0 {
			simBuilder = simBuilder.WithMonitorPort(servePort)
		}
		if openDashboard {
			simBuilder = simBuilder.WithDashboardAutoOpen()
		}
	} else {
		simBuilder = simBuilder.WithoutMonitoring()
	}
	if name := outputName(); name != "" {
		simBuilder = simBuilder.WithOutputFileName(name)
	}

	s := simBuilder.Build()

	chipBuilder := soc.MakeBuilder().
		WithSimulation(s).
		WithClockFreq(sim.Freq(clockMHz) * sim.MHz).
		WithBaud(baud).
		WithArbitration(arb).
		WithSelfTestDomain(selfTestDomain).
		WithRandomSelfTest(randomSelfTest).
		WithFlashMode(flashMode)
	if ethernet {
		chipBuilder = chipBuilder.WithEthernet()
	}
	if etherbone {
		chipBuilder = chipBuilder.WithEtherbone()
	}

	chip, err := chipBuilder.Build("Chip")
	if err != nil {
		discardRun(s)
		return nil, nil, err
	}

	return chip, s, nil
}

func arbitrationValue() (fabric.Arbitration, error) {
	switch arbitration {
	case "round-robin":
		return fabric.RoundRobin, nil
	case "priority":
		return fabric.Priority, nil
	}

	return fabric.RoundRobin, fmt.Errorf(
		"arbitration %q is not one of round-robin, priority", arbitration)
}

func outputName() string {
	if output != "" {
		return output
	}

	return os.Getenv("SOCFORGE_OUTPUT")
}

// runDatabase returns the file the simulation records into.
func runDatabase(s *simulation.Simulation) string {
	if name := outputName(); name != "" {
		return name + ".sqlite3"
	}

	return "socforge_sim_" + s.ID() + ".sqlite3"
}

// discardRun tears the simulation down and removes its database. Used by
// subcommands whose run produces nothing worth keeping.
func discardRun(s *simulation.Simulation) {
	s.Terminate()
	os.Remove(runDatabase(s))
}
