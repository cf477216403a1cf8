package main

import (
	"github.com/spf13/cobra"

	"github.com/edgard/chatcsv/internal/normalize"
)

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <input.csv> [output.csv]",
	Short: "Scrub embedded media and drop metadata columns from a chat CSV",
	Long:  "normalize rewrites cells containing embedded-media markup to the literal \"image\" and drops metadata columns. Without an output path the input file is replaced in place; the replacement is atomic either way.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runNormalize,
}

func runNormalize(_ *cobra.Command, args []string) error {
	output := ""
	if len(args) == 2 {
		output = args[1]
	}
	return normalize.Normalize(args[0], output)
}
