package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"searchlib/internal/catalog"
	"searchlib/internal/ingest"
	"searchlib/pkg/database"
	"searchlib/pkg/utils"
)

func newRunCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion batch over the upload directory",
		Example: `  ingest run
  ingest run --dir ./incoming`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := utils.LoadIngestConfig()
			if dir != "" {
				cfg.UploadDir = dir
			}

			db, err := database.Open(database.DefaultConfig())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			in, err := ingest.FromConfig(cfg, catalog.NewRepo(db), nil, slog.Default())
			if err != nil {
				return err
			}

			sum, err := in.Run(cmd.Context())
			out, mErr := json.MarshalIndent(sum, "", "  ")
			if mErr != nil {
				return mErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Upload directory (default from CATALOG_UPLOAD_DIR)")

	return cmd
}
