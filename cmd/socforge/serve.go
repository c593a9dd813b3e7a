package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	servePort     int
	openDashboard bool
	serveSelfTest bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compose a chip and serve the inspection dashboard.",
	Long: "`serve` composes a chip with the monitor attached and keeps the " +
		"process alive so the dashboard can pause, step, and inspect it. " +
		"With --selftest the memory self-test runs first and its outcome " +
		"shows on the dashboard.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort == 0 {
			servePort = envMonitorPort()
		}

		chip, s, err := composeChip(true)
		if err != nil {
			return err
		}
		defer s.Terminate()

		if serveSelfTest {
			chip.Generator().Shoot()
			if err := s.GetEngine().Run(); err != nil {
				return err
			}

			chip.Checker().Shoot()
			if err := s.GetEngine().Run(); err != nil {
				return err
			}

			chip.RecordArtifacts()
		} else {
			if err := s.GetEngine().Run(); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "chip %s is up, run database %s\n",
			chip.Name(), runDatabase(s))
		fmt.Fprintln(out, "press ctrl-c to stop")

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		return nil
	},
}

func envMonitorPort() int {
	value := os.Getenv("SOCFORGE_MONITOR_PORT")
	if value == "" {
		return 0
	}

	port, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}

	return port
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"fixed monitor port, 0 picks a free one")
	serveCmd.Flags().BoolVar(&openDashboard, "open", false,
		"open the dashboard in a browser")
	serveCmd.Flags().BoolVar(&serveSelfTest, "selftest", false,
		"run the memory self-test before serving")
}
