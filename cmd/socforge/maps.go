package main

import (
	"os"

	"github.com/spf13/cobra"
)

var mapsCSV string

var mapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "Compose a chip and export its allocation tables.",
	Long: "`maps` composes a chip from the selected profiles and writes the " +
		"resolved allocation as csv lines: one per register block, one per " +
		"address window, one per interrupt.",
	RunE: func(cmd *cobra.Command, args []string) error {
		chip, s, err := composeChip(false)
		if err != nil {
			return err
		}
		defer discardRun(s)

		if mapsCSV == "" {
			return chip.ExportCSRCSV(cmd.OutOrStdout())
		}

		f, err := os.Create(mapsCSV)
		if err != nil {
			return err
		}
		defer f.Close()

		return chip.ExportCSRCSV(f)
	},
}

func init() {
	rootCmd.AddCommand(mapsCmd)
	mapsCmd.Flags().StringVar(&mapsCSV, "csv", "",
		"write the tables to this file instead of stdout")
}
