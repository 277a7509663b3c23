package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"

	"searchlib/internal/catalog"
	"searchlib/pkg/database"
	"searchlib/pkg/models"
)

// exportRow is the flat form of a catalog record. Multi-valued names are
// joined with "; ".
type exportRow struct {
	ID              int64  `parquet:"id"`
	Title           string `parquet:"title,optional"`
	PublishingYear  int32  `parquet:"publishing_year,optional"`
	URL             string `parquet:"url,optional"`
	Description     string `parquet:"description,optional"`
	Cover           string `parquet:"cover,optional"`
	ISBN            string `parquet:"isbn,optional"`
	ISSN            string `parquet:"issn,optional"`
	Pages           int32  `parquet:"pages,optional"`
	UDC             string `parquet:"udc,optional"`
	BBK             string `parquet:"bbk,optional"`
	Fingerprint     int64  `parquet:"fingerprint"`
	Authors         string `parquet:"authors,optional"`
	Publishers      string `parquet:"publishers,optional"`
	Keywords        string `parquet:"keywords,optional"`
	DocumentTypes   string `parquet:"document_types,optional"`
	SourceDatabases string `parquet:"source_databases,optional"`
}

var csvHeader = []string{
	"id", "title", "publishing_year", "url", "description", "cover", "isbn", "issn",
	"pages", "udc", "bbk", "fingerprint", "authors", "publishers", "keywords",
	"document_types", "source_databases",
}

func toRow(v models.RecordView) exportRow {
	return exportRow{
		ID:              v.ID,
		Title:           v.Title,
		PublishingYear:  int32(v.PublishingYear),
		URL:             v.URL,
		Description:     v.Description,
		Cover:           v.Cover,
		ISBN:            v.ISBN,
		ISSN:            v.ISSN,
		Pages:           int32(v.Pages),
		UDC:             v.UDC,
		BBK:             v.BBK,
		Fingerprint:     v.Fingerprint,
		Authors:         strings.Join(v.Authors, "; "),
		Publishers:      strings.Join(v.Publishers, "; "),
		Keywords:        strings.Join(v.Keywords, "; "),
		DocumentTypes:   strings.Join(v.DocumentTypes, "; "),
		SourceDatabases: strings.Join(v.SourceDatabases, "; "),
	}
}

func optInt(n int32) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(int(n))
}

func (r exportRow) csv() []string {
	return []string{
		strconv.FormatInt(r.ID, 10), r.Title, optInt(r.PublishingYear), r.URL,
		r.Description, r.Cover, r.ISBN, r.ISSN, optInt(r.Pages), r.UDC, r.BBK,
		strconv.FormatInt(r.Fingerprint, 10), r.Authors, r.Publishers, r.Keywords,
		r.DocumentTypes, r.SourceDatabases,
	}
}

func writeCSV(w io.Writer, rows []exportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.csv()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func newExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the catalog as CSV or Parquet",
		Example: `  ingest export --format csv --out data/records.csv
  ingest export --format parquet --out data/records.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "parquet" {
				return fmt.Errorf("unsupported format %q (supported: csv, parquet)", format)
			}

			db, err := database.Open(database.DefaultConfig())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			views, err := catalog.NewRepo(db).All(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]exportRow, 0, len(views))
			for _, v := range views {
				rows = append(rows, toRow(v))
			}

			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			switch format {
			case "parquet":
				err = parquet.WriteFile(out, rows)
			default:
				var f *os.File
				if f, err = os.Create(out); err != nil {
					return err
				}
				err = writeCSV(f, rows)
				if cErr := f.Close(); err == nil {
					err = cErr
				}
			}
			if err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(rows), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or parquet")
	cmd.Flags().StringVar(&out, "out", "data/records.csv", "Output path")

	return cmd
}
