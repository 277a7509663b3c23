package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"searchlib/pkg/utils"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest ISO 2709 bibliographic files into the catalog",
		Long: `ingest drains the upload directory into the catalog database.

Each file is probed for its character encoding, routed to a field-layout
dialect by its source database, normalized and deduplicated by fingerprint.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			logCfg := utils.LoadLogConfig()
			utils.SetupLogging(logCfg.Level, logCfg.Format)
		},
	}

	cmd.AddCommand(newRunCmd(), newProbeCmd(), newExportCmd(), newWatchCmd())

	return cmd
}
