package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"searchlib/internal/ingest"
	"searchlib/pkg/utils"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe FILE...",
		Short: "Report the encoding, source database and dialect of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			router, err := ingest.NewRouter(utils.LoadIngestConfig())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, path := range args {
				rt, err := router.Route(path)
				if err != nil {
					fmt.Fprintf(w, "%s\terror: %v\n", rt.File, err)
					continue
				}
				dialect := string(rt.Dialect)
				if !rt.Routable() {
					dialect = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rt.File, rt.Encoding.Name, rt.Source, dialect)
			}
			return nil
		},
	}
}
