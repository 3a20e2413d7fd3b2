package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/camden-git/attendancesys/database"
	"github.com/camden-git/attendancesys/services"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one day's attendance",
	Long: `Export the attendance records of one day as CSV or XLSX.
Without --out the file is written to stdout.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("date", "", "Day to export as YYYY-MM-DD (defaults to today)")
	exportCmd.Flags().String("format", "csv", "Output format: csv or xlsx")
	exportCmd.Flags().String("out", "", "Output file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := mustGetString(cmd, "format")
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unknown export format %q, expected csv or xlsx", format)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	date := mustGetString(cmd, "date")
	if date == "" {
		date = a.cfg.Today()
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	export := services.NewExportService(sqlDB, database.StatementBuilder(a.cfg.DatabaseDriver), a.logger)

	var w io.Writer = cmd.OutOrStdout()
	if out := mustGetString(cmd, "out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	if format == "xlsx" {
		return export.WriteXLSX(cmd.Context(), w, date)
	}
	return export.WriteCSV(cmd.Context(), w, date)
}
