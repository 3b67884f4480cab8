package main

import (
	"fmt"

	"github.com/pevans/eptexts/collector"
	"github.com/spf13/cobra"
)

func newShowCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print the records of a previous scrape",
		Long: `Print the records of a JSON file written by scrape. Without an argument
the configured output file is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "compact" {
				return fmt.Errorf("invalid format %q: must be table or compact", format)
			}

			path := a.cfg.Output
			if len(args) == 1 {
				path = args[0]
			}

			records, err := collector.ReadJSON(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "compact" {
				printRecordsCompact(out, records)
			} else {
				printRecordsTable(out, records)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table or compact")

	return cmd
}
