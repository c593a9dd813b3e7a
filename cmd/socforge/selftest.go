package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var selfTestLength uint64

var selfTestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Compose a chip, run the memory self-test, and report.",
	Long: "`selftest` composes a chip, waits for the clock tree to release " +
		"the self-test domain, writes the pattern through the generator, " +
		"reads it back through the checker, and reports bad words. The " +
		"allocation and the outcome are recorded in the run database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		chip, s, err := composeChip(false)
		if err != nil {
			return err
		}
		defer s.Terminate()

		gen := chip.Generator()
		chk := chip.Checker()
		if selfTestLength > 0 {
			gen.SetLength(selfTestLength)
			chk.SetLength(selfTestLength)
		}

		gen.Shoot()
		if err := s.GetEngine().Run(); err != nil {
			return err
		}

		chk.Shoot()
		if err := s.GetEngine().Run(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		issued, completed := chk.Progress()
		fmt.Fprintf(out, "generator: done=%t timedOut=%t\n",
			gen.Done(), gen.TimedOut())
		fmt.Fprintf(out, "checker:   done=%t timedOut=%t words=%d/%d errors=%d\n",
			chk.Done(), chk.TimedOut(), completed, issued, chk.ErrorCount())

		chip.RecordArtifacts()
		fmt.Fprintf(out, "run database: %s\n", runDatabase(s))

		if gen.TimedOut() || chk.TimedOut() {
			return fmt.Errorf("self-test timed out")
		}
		if n := chk.ErrorCount(); n > 0 {
			return fmt.Errorf("self-test found %d bad words", n)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(selfTestCmd)
	selfTestCmd.Flags().Uint64Var(&selfTestLength, "words", 0,
		"words to test, 0 keeps the composed default")
}
