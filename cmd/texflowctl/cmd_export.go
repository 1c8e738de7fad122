package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/export"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
)

const (
	formatXLSX   = "xlsx"
	formatSQLite = "sqlite"
)

type exportOptions struct {
	format string
	out    string
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var eo exportOptions

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Convert a file to an Excel report or a SQLite backup",
		Long: `Convert an ERP spreadsheet or a ledger backup.

The xlsx format writes the report the dashboard exports; the sqlite format
writes a backup that the API and 'texflowctl import' accept. The format
defaults to the extension of --out.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if eo.format == "" {
				eo.format = formatFromPath(eo.out)
			}
			if eo.format != formatXLSX && eo.format != formatSQLite {
				return fmt.Errorf("unsupported --format %q: want xlsx or sqlite", eo.format)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			now, err := opts.now()
			if err != nil {
				return err
			}
			result, err := readSource(args[0], loc)
			if err != nil {
				return err
			}

			switch eo.format {
			case formatSQLite:
				err = export.WriteSQLite(eo.out, result.Orders, result.Headers)
			default:
				err = writeExcelFile(eo.out, result, now)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d orders to %s\n", len(result.Orders), eo.out)
			return nil
		},
	}

	cmd.Flags().StringVar(&eo.format, "format", "", "Output format: xlsx or sqlite")
	cmd.Flags().StringVarP(&eo.out, "out", "o", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return formatXLSX
	case ".sqlite", ".db":
		return formatSQLite
	}
	return ""
}

func writeExcelFile(path string, result *ingest.NormalizeResult, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteExcel(f, result.Orders, now); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
