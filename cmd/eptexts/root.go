package main

import (
	"fmt"

	"github.com/pevans/eptexts/config"
	"github.com/pevans/eptexts/logger"
	"github.com/spf13/cobra"
)

// app holds the state shared by all subcommands once the root command has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log logger.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "eptexts",
		Short: "Collect European Parliament adopted texts",
		Long: `eptexts reads the European Parliament's adopted texts from the plenary
listing, the open data API or the RSS feed, normalizes each entry and writes
the records to a JSON file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to a YAML config file (defaults apply when empty or missing)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"log level: debug, info, warn or error (overrides the config file)")

	root.AddCommand(newScrapeCommand(a))
	root.AddCommand(newServeCommand(a))
	root.AddCommand(newShowCommand(a))
	root.AddCommand(newVersionCommand())

	return root
}

// init loads the configuration file and builds the logger.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eptexts version %s\n", version)
		},
	}
}
