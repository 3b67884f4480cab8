package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pevans/eptexts/collector"
	"github.com/pevans/eptexts/logger"
	"github.com/spf13/cobra"
)

type scrapeOptions struct {
	mode      string
	startDate string
	endDate   string
	output    string
	sqlite    string
	maxPages  int
	format    string
}

func newScrapeCommand(a *app) *cobra.Command {
	opts := &scrapeOptions{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape and write the records",
		Long: `Run one scrape and write the records as a JSON array.

Records gathered before a page fails to load are still written; the command
then exits with status 1. An invalid date filter fails before anything is
fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.scrape(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", "", "retrieval mode: html, api or feed")
	flags.StringVar(&opts.startDate, "start-date", "", "earliest date, YYYY-MM-DD or DD/MM/YYYY")
	flags.StringVar(&opts.endDate, "end-date", "", "latest date, YYYY-MM-DD or DD/MM/YYYY")
	flags.StringVarP(&opts.output, "output", "o", "", "JSON output file")
	flags.StringVar(&opts.sqlite, "sqlite", "", "also export the records to this SQLite database")
	flags.IntVar(&opts.maxPages, "max-pages", 0, "stop after this many pages (0 for no limit)")
	flags.StringVar(&opts.format, "format", "table", "summary format: table or json")

	return cmd
}

func (a *app) scrape(cmd *cobra.Command, opts *scrapeOptions) error {
	cfg := *a.cfg
	flags := cmd.Flags()

	if flags.Changed("mode") {
		cfg.Mode = opts.mode
	}
	if flags.Changed("start-date") {
		cfg.StartDate = opts.startDate
	}
	if flags.Changed("end-date") {
		cfg.EndDate = opts.endDate
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("sqlite") {
		cfg.SQLiteOutput = opts.sqlite
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages = opts.maxPages
	}
	if opts.format != "table" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: must be table or json", opts.format)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := collector.Run(ctx, &cfg, a.log)
	if runErr != nil && collector.IsConfigurationError(runErr) {
		return runErr
	}

	if err := writeOutputs(cfg.Output, cfg.SQLiteOutput, result, a.log); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		if err := printSummaryJSON(out, cfg.Mode, result); err != nil {
			return err
		}
	} else {
		printSummaryTable(out, cfg.Mode, cfg.Output, result)
	}

	return runErr
}

// writeOutputs writes the run's records to the JSON file and, when
// configured, to SQLite.
func writeOutputs(output, sqlitePath string, result *collector.Result, log logger.Logger) error {
	if err := collector.WriteJSON(output, result.Records); err != nil {
		return err
	}
	log.Info("Wrote records",
		logger.String("path", output),
		logger.Int("records", len(result.Records)))

	if sqlitePath == "" {
		return nil
	}

	sink, err := collector.NewSQLiteSink(sqlitePath)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.Write(result); err != nil {
		return err
	}
	log.Info("Exported records to SQLite", logger.String("path", sqlitePath))
	return nil
}
